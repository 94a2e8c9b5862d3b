package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"modcheck/backend/internal/api/handler"
	"modcheck/backend/internal/config"
	"modcheck/backend/internal/export"
	"modcheck/backend/internal/models"
	"modcheck/backend/internal/queue"
	"modcheck/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  show-policy
  set-policy [-enabled=true] [-action=record|ignore|delete] [-endpoint=URL] [-token=TOKEN] [-threshold=0.5]
  check <report_id>
  export
  token <user_id>`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("invalid configuration", err)
	}
	config.ConfigureLogging(cfg.LogLevel)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		fatal("failed to connect database", err)
	}

	// Redis is only needed to enqueue checks.
	s := storage.NewStorageService(db, nil)
	ctx := context.Background()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "show-policy":
		if err := showPolicy(ctx, s, os.Stdout); err != nil {
			fatal("error loading policy", err)
		}
	case "set-policy":
		if err := setPolicy(ctx, s, args, os.Stdout); err != nil {
			fatal("error updating policy", err)
		}
	case "check":
		if len(args) != 1 {
			fmt.Println("Usage: admin check <report_id>")
			os.Exit(1)
		}
		pub, closePub := publisher(cfg, s)
		defer closePub()
		if err := enqueueCheck(ctx, s, pub, args[0]); err != nil {
			fatal("error enqueuing check", err)
		}
		fmt.Printf("Auto-check for report %s has been queued.\n", args[0])
	case "export":
		store, err := export.NewObjectStore(ctx, cfg.ExportEndpoint, cfg.ExportAccessKey, cfg.ExportSecretKey, cfg.ExportBucket, cfg.ExportUseSSL)
		if err != nil {
			fatal("error connecting object storage", err)
		}
		res, err := export.NewExporter(s, store).Export(ctx)
		if err != nil {
			fatal("error exporting ledger", err)
		}
		fmt.Printf("Exported %d records to %s\n", res.Rows, res.URL)
	case "token":
		if len(args) != 1 {
			fmt.Println("Usage: admin token <user_id>")
			os.Exit(1)
		}
		tok, err := issueToken(ctx, s, []byte(cfg.JWTSecret), args[0])
		if err != nil {
			fatal("error issuing token", err)
		}
		fmt.Println(tok)
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func publisher(cfg *config.Config, s *storage.Service) (queue.Publisher, func()) {
	if len(cfg.KafkaBrokers) > 0 {
		p := queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, func() { p.Close() }
	}
	s.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return queue.NewRedisQueue(s, config.DequeueTimeout), func() { s.Redis.Close() }
}

type policyStore interface {
	GetModerationPolicy(ctx context.Context) (*models.ModerationPolicy, error)
	SaveModerationPolicy(ctx context.Context, p *models.ModerationPolicy) error
}

func showPolicy(ctx context.Context, s policyStore, w io.Writer) error {
	p, err := s.GetModerationPolicy(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p.Masked())
}

// setPolicy parses flags into a partial update; only flags given on the
// command line change the stored policy.
func setPolicy(ctx context.Context, s policyStore, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("set-policy", flag.ContinueOnError)
	fs.SetOutput(w)
	enabled := fs.Bool("enabled", false, "enable automated checks")
	action := fs.String("action", config.DefaultActionOnFlag, "action for flagged notes")
	endpoint := fs.String("endpoint", "", "scoring backend URL")
	token := fs.String("token", "", "scoring backend bearer token")
	threshold := fs.Float64("threshold", config.DefaultScoreThreshold, "score below which a note is flagged")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var upd models.PolicyUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "enabled":
			upd.AutoCheckEnabled = enabled
		case "action":
			upd.ActionOnFlag = action
		case "endpoint":
			upd.ScoringEndpoint = endpoint
		case "token":
			upd.ScoringToken = token
		case "threshold":
			upd.ScoreThreshold = threshold
		}
	})

	p, err := s.GetModerationPolicy(ctx)
	if err != nil {
		return err
	}
	upd.Apply(p)
	if err := s.SaveModerationPolicy(ctx, p); err != nil {
		return err
	}
	fmt.Fprintln(w, "Moderation policy updated.")
	return nil
}

type reportGetter interface {
	GetReport(ctx context.Context, id string) (*models.AbuseReport, error)
}

func enqueueCheck(ctx context.Context, s reportGetter, pub queue.Publisher, reportID string) error {
	if _, err := s.GetReport(ctx, reportID); err != nil {
		return err
	}
	return pub.Publish(ctx, models.Trigger{Model: models.AbuseCheckModel, ID: reportID})
}

var errNotModerator = errors.New("user is neither moderator nor root")

type userGetter interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

func issueToken(ctx context.Context, s userGetter, secret []byte, userID string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.IsModerator && !user.IsRoot {
		return "", errNotModerator
	}
	return handler.GenerateToken(secret, user.ID, true)
}
