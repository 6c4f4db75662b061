package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zyfalo/sereno/internal/server"
)

var (
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	replyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	emergencyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	dimStyle       = lipgloss.NewStyle().Faint(true)
)

func chatCmd() *cobra.Command {
	var backendURL string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive terminal chat against a running backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 120 * time.Second}
			sessionID := ""

			fmt.Println(promptStyle.Render("sereno · asistente de psicoeducación"))
			fmt.Println(dimStyle.Render("Comandos: /new (nueva sesión), /history, /quit"))

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print(promptStyle.Render("\nTú: "))
				if !scanner.Scan() {
					return scanner.Err()
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}

				switch input {
				case "/quit", "/exit":
					fmt.Println(dimStyle.Render("Hasta pronto. Cuídate."))
					return nil
				case "/new":
					sessionID = ""
					fmt.Println(dimStyle.Render("Sesión reiniciada."))
					continue
				case "/history":
					if err := printHistory(client, backendURL, sessionID); err != nil {
						fmt.Println(dimStyle.Render("error: " + err.Error()))
					}
					continue
				}

				resp, err := sendMessage(client, backendURL, sessionID, input)
				if err != nil {
					fmt.Println(dimStyle.Render("error: " + err.Error()))
					continue
				}
				sessionID = resp.SessionID

				if resp.IsCrisis {
					fmt.Println(emergencyStyle.Render("\n" + resp.Response))
					continue
				}
				fmt.Println(replyStyle.Render("\nAsistente: " + resp.Response))
			}
		},
	}

	cmd.Flags().StringVar(&backendURL, "backend", "http://127.0.0.1:8000", "backend base URL")
	return cmd
}

func sendMessage(client *http.Client, baseURL, sessionID, message string) (*server.ChatResponse, error) {
	body, err := json.Marshal(server.ChatRequest{SessionID: sessionID, Message: message})
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/v1/chat/message", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out server.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func printHistory(client *http.Client, baseURL, sessionID string) error {
	if sessionID == "" {
		fmt.Println(dimStyle.Render("Aún no hay conversación."))
		return nil
	}

	resp, err := client.Get(baseURL + "/v1/sessions/" + sessionID + "/history")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	var payload struct {
		Messages []struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			Timestamp string `json:"timestamp"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}

	for _, msg := range payload.Messages {
		if msg.Role == "system" {
			continue
		}
		fmt.Printf("%s %s\n", dimStyle.Render("["+msg.Role+"]"), msg.Content)
	}
	return nil
}
