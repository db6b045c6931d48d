// Command mailbrief fetches recent mailbox activity through the first
// available backend, synthesizes a prioritized morning briefing, stores
// it, and renders it as a JSON artifact.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/nhle/mailbrief/internal/backend"
	"github.com/nhle/mailbrief/internal/backend/gmail"
	"github.com/nhle/mailbrief/internal/backend/mailbox"
	"github.com/nhle/mailbrief/internal/backend/manual"
	"github.com/nhle/mailbrief/internal/backend/mock"
	"github.com/nhle/mailbrief/internal/backend/proxy"
	"github.com/nhle/mailbrief/internal/briefing"
	"github.com/nhle/mailbrief/internal/config"
	"github.com/nhle/mailbrief/internal/credential"
	"github.com/nhle/mailbrief/internal/pipeline"
	"github.com/nhle/mailbrief/internal/store"
)

func main() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	var (
		configPath = flag.String("config", config.DefaultConfigPath(),
			"configuration file path")
		outputPath = flag.String("output", "",
			"briefing artifact path (overrides config)")
		latest = flag.Bool("latest", false,
			"print the most recent stored briefing and exit")
		completeTask = flag.String("complete", "",
			"mark the given task id completed and exit")
	)
	flag.Parse()

	if err := run(*configPath, *outputPath, *latest, *completeTask); err != nil {
		log.Fatalf("mailbrief: %v", err)
	}
}

func run(configPath, outputPath string, latest bool, completeTask string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if outputPath != "" {
		cfg.OutputPath = outputPath
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case latest:
		return printLatest(ctx, db)
	case completeTask != "":
		return db.SetTaskCompleted(ctx, completeTask, true)
	}

	orch := buildChain(cfg)
	pipe := pipeline.New(orch, cfg.Window(), cfg.MaxMessages)

	result, _, err := pipe.Run(ctx)
	if err != nil {
		var exhausted *backend.ExhaustedError
		if errors.As(err, &exhausted) {
			log.Println(exhausted.Error())
			log.Println(exhausted.Hint())
		}
		return err
	}

	if err := db.SaveBriefing(ctx, *result); err != nil {
		return err
	}

	renderer := &briefing.JSONRenderer{Path: cfg.OutputPath}
	path, err := briefing.Render(ctx, renderer, *result, cfg.Timeouts.Render)
	if err != nil {
		return err
	}

	log.Printf("briefing %s from %s: %s",
		result.ID, result.SourceBackend, result.EmailSummary)
	log.Printf("%d tasks, artifact at %s", len(result.Tasks), path)
	return nil
}

// buildChain assembles the backend chain in its fixed priority order.
func buildChain(cfg *config.Config) *backend.Orchestrator {
	creds := credential.NewStore(
		cfg.Gmail.ClientID,
		cfg.Gmail.ClientSecret,
		cfg.Gmail.TokenFile,
		[]string{gmailapi.GmailReadonlyScope},
		credential.WithCodeProvider(promptAuthCode),
	)

	imapPassword := credential.SecretOr(
		cfg.IMAP.Password, credential.KeyIMAPPassword,
	)
	proxyCfg := cfg.Proxy
	proxyCfg.Secret = credential.SecretOr(
		proxyCfg.Secret, credential.KeyProxySecret,
	)

	return backend.NewOrchestrator(
		backend.Candidate{
			Backend: gmail.NewEnvTokenBackend(cfg),
			Timeout: cfg.Timeouts.EnvGmail,
		},
		backend.Candidate{
			Backend: gmail.NewAPIBackend(creds, cfg.ExcerptLen),
			Timeout: cfg.Timeouts.GmailAPI,
		},
		backend.Candidate{
			Backend: proxy.NewWorkerBackend(
				cfg.Account, proxyCfg, cfg.ExcerptLen,
			),
			Timeout: cfg.Timeouts.Proxy,
		},
		backend.Candidate{
			Backend: mailbox.NewIMAPBackend(
				cfg.Account, imapPassword, cfg.IMAP, cfg.ExcerptLen,
			),
			Timeout: cfg.Timeouts.IMAP,
		},
		backend.Candidate{
			Backend: manual.NewPayloadBackend(cfg.Manual, cfg.ExcerptLen),
		},
		backend.Candidate{
			Backend: mock.NewBackend(),
		},
	)
}

// promptAuthCode walks the operator through the manual authorization
// flow on the terminal.
func promptAuthCode(authURL string) (string, error) {
	fmt.Fprintln(os.Stderr, "Open this URL in a browser and authorize access:")
	fmt.Fprintln(os.Stderr, "  "+authURL)
	fmt.Fprint(os.Stderr, "Paste the authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading authorization code: %w", err)
	}

	code := strings.TrimSpace(line)
	if code == "" {
		return "", errors.New("empty authorization code")
	}
	return code, nil
}

// printLatest writes the most recent stored briefing to stdout as JSON.
func printLatest(ctx context.Context, db *store.SQLiteStore) error {
	result, err := db.GetLatestBriefing(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.New("no briefings stored yet")
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
