package main

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/review-coordinator/internal/config"
	"github.com/hochfrequenz/review-coordinator/internal/coord"
	"github.com/hochfrequenz/review-coordinator/internal/detect"
	"github.com/hochfrequenz/review-coordinator/internal/domain"
	"github.com/hochfrequenz/review-coordinator/internal/extract"
	"github.com/hochfrequenz/review-coordinator/internal/fetch"
	"github.com/hochfrequenz/review-coordinator/internal/runstore"
	"github.com/hochfrequenz/review-coordinator/internal/toolserver"
	"github.com/hochfrequenz/review-coordinator/web/api"
)

var (
	flagOwner string
	flagRepo  string
	flagPR    int
	flagMax   int
	servePort int
)

func init() {
	// mcp command
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP tool server on stdin/stdout",
		RunE:  runMCP,
	}
	rootCmd.AddCommand(mcpCmd)

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the status API server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)

	// agents command
	agentsCmd := &cobra.Command{
		Use:   "agents",
		Short: "Show which review agents have reviewed a PR",
		RunE:  runAgents,
	}
	addPRFlags(agentsCmd)
	rootCmd.AddCommand(agentsCmd)

	// comments command
	commentsCmd := &cobra.Command{
		Use:   "comments",
		Short: "List normalized review comments of a PR",
		RunE:  runComments,
	}
	addPRFlags(commentsCmd)
	commentsCmd.Flags().IntVar(&flagMax, "max", 0, "cap on comments fetched (0 = all)")
	rootCmd.AddCommand(commentsCmd)
}

func addPRFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOwner, "owner", "", "repository owner")
	cmd.Flags().StringVar(&flagRepo, "repo", "", "repository name")
	cmd.Flags().IntVar(&flagPR, "pr", 0, "pull request number")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("repo")
	cmd.MarkFlagRequired("pr")
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// resolveConfig layers the repo file and environment over the user config.
func resolveConfig(cfg *config.Config) (config.Resolved, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.Resolved{}, err
	}
	repoCfg, err := config.LoadRepoConfig(wd)
	if err != nil {
		return config.Resolved{}, err
	}
	return config.Resolve(cfg, repoCfg, os.Getenv)
}

func newFetcher(cfg *config.Config) *fetch.Fetcher {
	token := cfg.Upstream.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return fetch.New(client, fetch.Config{
		PageSize:         cfg.Upstream.PageSize,
		RequestsPerSec:   cfg.Upstream.RequestsPerSec,
		Burst:            cfg.Upstream.Burst,
		FailureThreshold: cfg.Upstream.FailureThreshold,
		Cooldown:         time.Duration(cfg.Upstream.CooldownSeconds) * time.Second,
	})
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return err
	}

	var opts []coord.Option
	store, err := runstore.New(cfg.Store.DatabasePath)
	if err != nil {
		log.Printf("run snapshot store disabled: %v", err)
	} else {
		defer store.Close()
		opts = append(opts, coord.WithSnapshotter(store))
	}

	engine := coord.NewEngine(opts...)
	server := toolserver.New(toolserver.Deps{
		Engine:  engine,
		Fetcher: newFetcher(cfg),
		Agents:  resolved.Agents,
	})
	return toolserver.ServeStdio(server)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return err
	}

	port := servePort
	if port == 0 {
		port = cfg.Web.Port
	}
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)

	fetcher := newFetcher(cfg)

	// The hook fires only after mutations, so wiring it through a pointer
	// that is filled in right below is safe.
	var server *api.Server
	engine := coord.NewEngine(coord.WithChangeHook(func(state *domain.CoordinationState) {
		if server != nil {
			server.PublishRun(state)
		}
	}))
	server = api.NewServer(engine, fetcher, resolved.Agents, addr)

	fmt.Printf("Starting status API at http://%s\n", addr)
	return server.Start()
}

func runAgents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return err
	}

	id := domain.Identity{Owner: flagOwner, Repo: flagRepo}
	records, err := detect.DetectReviewedAgents(cmd.Context(), newFetcher(cfg), resolved.Agents, id, flagPR)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No configured agents found on the PR timeline")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tSTATUS\tREVIEWER\tREVIEWED AT")
	for _, r := range records {
		reviewer := r.ReviewAuthor
		if reviewer == "" {
			reviewer = "-"
		}
		reviewedAt := "-"
		if !r.ReviewedAt.IsZero() {
			reviewedAt = r.ReviewedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.AgentID, r.Status, reviewer, reviewedAt)
	}
	w.Flush()

	return nil
}

func runComments(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	id := domain.Identity{Owner: flagOwner, Repo: flagRepo}
	threads, err := newFetcher(cfg).FetchAllThreads(cmd.Context(), id, flagPR, fetch.Options{MaxItems: flagMax})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tLINE\tSEVERITY\tCATEGORY\tSOURCE\tPROMPT")
	for _, raw := range threads.Comments {
		nc := extract.Normalize(raw)
		prompt := "-"
		if nc.AIPrompt != nil {
			prompt = string(nc.AIPrompt.Confidence)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			nc.ID, nc.File, nc.Line, nc.Severity, nc.Category, nc.Source, prompt)
	}
	w.Flush()

	fmt.Printf("%d comments\n", threads.TotalCount)
	return nil
}
