package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alphabot-ai/fritter/internal/client"
	"github.com/alphabot-ai/fritter/internal/model"
)

const defaultURL = "http://localhost:8080"

var baseURL string

// CLIConfig holds the CLI session persisted to disk.
type CLIConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Token    string `json:"token"`
	TokenExp string `json:"token_expires"`
}

func cliConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fritter", "cli.json")
}

func loadCLIConfig() (CLIConfig, error) {
	var cfg CLIConfig
	data, err := os.ReadFile(cliConfigPath())
	if err != nil {
		return cfg, err
	}
	err = json.Unmarshal(data, &cfg)
	return cfg, err
}

func saveCLIConfig(cfg CLIConfig) error {
	path := cliConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func serverURL() string {
	if baseURL != "" {
		return strings.TrimSuffix(baseURL, "/")
	}
	if cfg, err := loadCLIConfig(); err == nil && cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return defaultURL
}

// sessionClient returns a client carrying the saved session token.
func sessionClient() (*client.Client, error) {
	cfg, err := loadCLIConfig()
	if err != nil || cfg.Token == "" {
		return nil, errors.New("not logged in; run: fritter login <username>")
	}
	c := client.New(serverURL())
	c.Token = cfg.Token
	if exp, err := time.Parse(time.RFC3339, cfg.TokenExp); err == nil {
		c.TokenExp = exp
	}
	if !c.IsAuthenticated() {
		return nil, errors.New("session expired; run: fritter login <username>")
	}
	return c, nil
}

var password string

func readPassword(cmd *cobra.Command) (string, error) {
	if password != "" {
		return password, nil
	}
	if env := os.Getenv("FRITTER_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account and log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(cmd)
		if err != nil {
			return err
		}
		c := client.New(serverURL())
		user, err := c.Register(args[0], pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered %s (%s)\n", user.Username, user.ID)
		return login(cmd, c, args[0], pw)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and save the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(cmd)
		if err != nil {
			return err
		}
		return login(cmd, client.New(serverURL()), args[0], pw)
	},
}

func login(cmd *cobra.Command, c *client.Client, username, pw string) error {
	user, err := c.Login(username, pw)
	if err != nil {
		return err
	}
	cfg := CLIConfig{
		BaseURL:  c.BaseURL,
		Username: user.Username,
		Token:    c.Token,
		TokenExp: c.TokenExp.Format(time.RFC3339),
	}
	if err := saveCLIConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", user.Username)
	fmt.Fprintf(cmd.OutOrStdout(), "  Config: %s\n", cliConfigPath())
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient()
		if err != nil {
			return err
		}
		if err := c.Logout(); err != nil {
			return err
		}
		cfg, _ := loadCLIConfig()
		cfg.Token, cfg.TokenExp = "", ""
		if err := saveCLIConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
		return nil
	},
}

var freetCmd = &cobra.Command{
	Use:   "freet <content>",
	Short: "Post a freet",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient()
		if err != nil {
			return err
		}
		f, err := c.PostFreet(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Posted freet %s\n", f.ID)
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <freet-id> <content>",
	Short: "Comment on a freet",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := sessionClient()
		if err != nil {
			return err
		}
		a, err := c.PostComment(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Posted comment %s\n", a.ID)
		return nil
	},
}

var reactUpdate bool

var reactCmd = &cobra.Command{
	Use:   "react <freet-id> <emotion>",
	Short: "React to a freet",
	Long:  "React to a freet. Emotion is one of: " + model.EmotionList() + ".",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !model.Emotion(args[1]).Valid() {
			return fmt.Errorf("unknown emotion %q, expected one of: %s", args[1], model.EmotionList())
		}
		c, err := sessionClient()
		if err != nil {
			return err
		}
		send := c.React
		if reactUpdate {
			send = c.UpdateReaction
		}
		a, err := send(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Reacted %s on freet %s\n", a.Emotion, a.FreetID)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVarP(&password, "password", "p", "", "Account password (default prompts or reads FRITTER_PASSWORD)")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "Account password (default prompts or reads FRITTER_PASSWORD)")
	reactCmd.Flags().BoolVar(&reactUpdate, "update", false, "Change an existing reaction instead of adding one")
}

var commentsCmd = &cobra.Command{
	Use:   "comments <freet-id>",
	Short: "List the comments on a freet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := client.New(serverURL()).Comments(args[0])
		if err != nil {
			return err
		}
		for _, a := range items {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-12s %s\n", a.DateModified, a.Author, a.Content)
		}
		return nil
	},
}

var reactionsCmd = &cobra.Command{
	Use:   "reactions <freet-id>",
	Short: "List the reactions on a freet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := client.New(serverURL()).Reactions(args[0])
		if err != nil {
			return err
		}
		counts := map[string]int{}
		for _, a := range items {
			counts[a.Emotion]++
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", a.Emotion, a.Author)
		}
		for _, e := range model.Emotions {
			if n := counts[string(e)]; n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d  ", e, n)
			}
		}
		if len(items) > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}
