// Command arenactl is a developer client for area servers: it stores a
// session token, reads team snapshots and drives an interactive session.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "team":
		err = commandTeam(args)
	case "session":
		err = commandSession(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	token := fs.String("token", "", "Session token (prompted when omitted)")
	server := fs.String("server", "", "Area server base URL (default "+defaultServerURL+")")
	fs.Parse(args)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	secret := strings.TrimSpace(*token)
	if secret == "" {
		fmt.Print("Session token: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		secret = strings.TrimSpace(string(bytes))
	}
	if secret == "" {
		return errors.New("empty session token")
	}
	cfg.SessionToken = secret
	if s := strings.TrimSpace(*server); s != "" {
		cfg.ServerURL = strings.TrimRight(s, "/")
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("token stored for %s\n", cfg.ServerURL)
	return nil
}

func commandTeam(args []string) error {
	if len(args) == 0 || args[0] != "get" {
		return errors.New("usage: arenactl team get <team-id> [--limit N]")
	}
	fs := flag.NewFlagSet("team get", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Maximum number of journal entries")
	fs.Parse(args[1:])
	if fs.NArg() != 1 {
		return errors.New("team id is required")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid team id %q", fs.Arg(0))
	}

	cfg, err := requireLogin()
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/teams/%d", cfg.ServerURL, id)
	if *limit > 0 {
		url += "?limit=" + strconv.Itoa(*limit)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SessionToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		return err
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
	return nil
}

func requireLogin() (cliConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, err
	}
	if strings.TrimSpace(cfg.SessionToken) == "" {
		return cliConfig{}, errors.New("please login first using 'arenactl login'")
	}
	return cfg, nil
}

func printUsage() {
	fmt.Printf("arenactl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	arenactl login [--token <jwt>] [--server http://localhost:4100]
	arenactl team get <team-id> [--limit N]
	arenactl session
	arenactl version

Session input lines are "<route> [json body]", for example:
	team.createTeam
	team.applyJoinTeam {"teamId":1}
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
