// Command chat is a terminal client for the chat room server.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Tyrowin/chatroom/internal/client"
	"github.com/Tyrowin/chatroom/internal/config"
	"github.com/Tyrowin/chatroom/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "chat:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadClient(args)
	if err != nil {
		return err
	}

	if cfg.Name == "" {
		cfg.Name = promptName(os.Stdin, os.Stdout)
	}

	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	logger := logging.New(cfg.LogLevel, false, logOut)

	dialer, err := client.NewWebSocketDialer(cfg.ServerURL, logger)
	if err != nil {
		return err
	}
	history, err := client.NewHistoryClient(cfg.ServerURL)
	if err != nil {
		return err
	}

	session := client.NewSession(cfg.Name, dialer, history, client.WithLogger(logger))
	defer session.Close()
	session.Start()

	logger.Info().Str("server", cfg.ServerURL).Msg("Starting chat client")
	_, err = tea.NewProgram(newModel(session), tea.WithAltScreen()).Run()
	return err
}

// promptName asks for a nickname on the terminal before the UI starts.
func promptName(in io.Reader, out io.Writer) string {
	fmt.Fprint(out, "Nickname: ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(line)
}
