package main

import (
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"receipt-lens/internal/flow"
	"receipt-lens/internal/ocr"
	"receipt-lens/internal/report"
	"receipt-lens/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Optional env file next to the binary; flags and real env win.
	_ = godotenv.Load("receipt-lens.env")

	fs := ff.NewFlagSet("receipt-lens")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "receipt-lens.db", "Attempt database file path")
		storagePath = fs.StringLong("storage", "./captures", "Capture storage directory path")
		recognizer  = fs.StringLong("recognizer", "remote", "Recognizer: 'remote' or 'gemini'")
		ocrURL      = fs.StringLong("ocr-url", "", "Base URL of the OCR endpoint (required for the remote recognizer)")
		ocrTimeout  = fs.DurationLong("ocr-timeout", 60*time.Second, "Timeout for one recognition request")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_LENS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Recognizer selection. The endpoint has no default: a missing value is
	// a configuration error, not a silent fallback.
	var rec ocr.Recognizer
	switch *recognizer {
	case "remote":
		if *ocrURL == "" {
			log.Fatal().Msg("OCR endpoint is required. Set --ocr-url flag or RECEIPT_LENS_OCR_URL environment variable")
		}
		log.Info().Str("url", *ocrURL).Msg("using remote OCR endpoint")
		rec = ocr.NewClient(ocr.ClientOpts{BaseURL: *ocrURL, Timeout: *ocrTimeout})
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			log.Fatal().Msg("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		log.Info().Str("model", *geminiModel).Msg("using Gemini recognizer")
		var err error
		rec, err = ocr.NewGemini(apiKey, *geminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Gemini")
		}
	default:
		log.Fatal().Str("recognizer", *recognizer).Msg("invalid recognizer, expected 'remote' or 'gemini'")
	}
	defer rec.Close()

	db, err := report.NewBoltDB(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open attempt database")
	}
	defer db.Close()

	storage, err := server.NewLocalStorage(*storagePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize capture storage")
	}

	reports := report.NewService(db)
	sessions := flow.NewSessions(func(session string) *flow.Flow {
		fl := flow.New(rec)
		fl.SetListener(reports.Listener(session))
		return fl
	})

	basicAuth := server.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	srv := server.New(sessions, reports, storage, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	log.Info().Str("address", fmt.Sprintf("http://localhost%s", addr)).Str("version", version).Msg("server started")
	if *authUser != "" || *authPass != "" {
		log.Info().Str("user", *authUser).Msg("basic auth enabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down")
}
