package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lokutor-ai/lokutor-transcribe/internal/session"
	"github.com/lokutor-ai/lokutor-transcribe/internal/warmup"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/asr/assemblyai"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/asr/deepgram"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/asr/groq"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/asr/openai"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/asrproc"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/config"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/logging"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/transport"
	"github.com/lokutor-ai/lokutor-transcribe/pkg/xlate"
	xlateprovider "github.com/lokutor-ai/lokutor-transcribe/pkg/xlate/provider"
)

var (
	host         string
	port         int
	useWebsocket bool
	warmupFile   string
	configPath   string
	logLevel     string

	backend      string
	model        string
	language     string
	minChunkSize float64

	translate           bool
	targetLanguage      string
	translationModel    string
	translationProvider string
	translationInterval time.Duration
	maxBufferTime        time.Duration
	minTextLength        int
	inactivityTimeout    time.Duration
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("note: no .env file found, using system environment variables")
	}

	root := &cobra.Command{
		Use:   "lokutor-transcribe",
		Short: "Streaming transcription and translation server",
		RunE:  run,
	}

	flags := root.Flags()
	flags.StringVar(&host, "host", "localhost", "listen address")
	flags.IntVar(&port, "port", 43007, "listen port")
	flags.BoolVar(&useWebsocket, "websocket", false, "serve the WebSocket transport instead of the line-oriented TCP transport")
	flags.StringVar(&warmupFile, "warmup-file", "", "raw PCM16 mono 16kHz file to prime the recognizer with at boot")
	flags.StringVar(&configPath, "config", "", "YAML config file overlaying translation defaults")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	flags.StringVar(&backend, "backend", "groq", "recognizer backend: openai, groq, deepgram, assemblyai")
	flags.StringVar(&model, "model", "", "recognizer model override")
	flags.StringVar(&language, "lan", "", "recognizer source language hint (ISO-639-1)")
	flags.Float64Var(&minChunkSize, "min-chunk-size", 1.0, "minimum seconds of audio accumulated before each processing iteration")

	flags.BoolVar(&translate, "translate", false, "enable the adaptive translation pipeline")
	flags.StringVar(&targetLanguage, "target-language", "", "translation target language (ISO-639-1)")
	flags.StringVar(&translationModel, "translation-model", "", "translation provider model override")
	flags.StringVar(&translationProvider, "translation-provider", "", "translation provider: gemini, openai")
	flags.DurationVar(&translationInterval, "translation-interval", 0, "adaptive buffer polling interval")
	flags.DurationVar(&maxBufferTime, "max-buffer-time", 0, "force a translation after this much buffered time")
	flags.IntVar(&minTextLength, "min-text-length", 0, "adaptive minimum text length before translating")
	flags.DurationVar(&inactivityTimeout, "inactivity-timeout", 0, "flush the translation buffer after this much silence")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := logging.NewSlog(logLevel)

	rec, err := buildRecognizer()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := warmup.Run(ctx, rec, warmupFile); err != nil {
		return fmt.Errorf("warmup: %w", err)
	}

	var newTranslationPair func() (*xlate.Buffer, *xlate.Manager)
	if translate {
		xcfg, err := resolveTranslationConfig()
		if err != nil {
			return err
		}
		translator, err := buildTranslator(xcfg)
		if err != nil {
			return fmt.Errorf("translation provider: %w", err)
		}
		languageName := xlate.ResolveLanguageName(xcfg.TargetLanguage)
		newTranslationPair = func() (*xlate.Buffer, *xlate.Manager) {
			buf := xlate.NewBuffer(xlate.BufferConfig{
				MinLength:         xcfg.MinTextLength,
				Interval:          time.Duration(xcfg.Interval),
				MaxBufferTime:     time.Duration(xcfg.MaxBufferTime),
				InactivityTimeout: time.Duration(xcfg.InactivityTimeout),
			})
			mgr := xlate.NewManager(translator, xlate.ManagerConfig{
				TargetLanguage: xcfg.TargetLanguage,
				Model:          xcfg.Model,
				SystemPrompt:   xcfg.SystemPrompt,
			}, languageName)
			return buf, mgr
		}
	}

	procCfg := asrproc.DefaultConfig()
	newSession := func(sctx context.Context, conn transport.Connection, formatter transport.Formatter) *session.Session {
		proc := asrproc.New(rec, procCfg)
		var buf *xlate.Buffer
		var mgr *xlate.Manager
		if newTranslationPair != nil {
			buf, mgr = newTranslationPair()
		}
		return session.New(sctx, conn, formatter, proc, buf, mgr, logger).WithMinChunkSeconds(minChunkSize)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	if useWebsocket {
		return serveWebsocket(ctx, addr, newSession, logger)
	}
	return serveLine(ctx, addr, newSession, logger)
}

// sessionFactory builds a fresh Session for one accepted connection.
type sessionFactory func(ctx context.Context, conn transport.Connection, formatter transport.Formatter) *session.Session

func buildRecognizer() (asrproc.Recognizer, error) {
	switch backend {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY must be set for the openai backend")
		}
		return openai.New(key, model, language), nil
	case "deepgram":
		key := os.Getenv("DEEPGRAM_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("DEEPGRAM_API_KEY must be set for the deepgram backend")
		}
		return deepgram.New(key, model, language), nil
	case "assemblyai":
		key := os.Getenv("ASSEMBLYAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ASSEMBLYAI_API_KEY must be set for the assemblyai backend")
		}
		return assemblyai.New(key, language), nil
	case "groq":
		fallthrough
	default:
		key := os.Getenv("GROQ_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GROQ_API_KEY must be set for the groq backend")
		}
		return groq.New(key, model, language), nil
	}
}

func resolveTranslationConfig() (config.Translation, error) {
	base := config.Defaults()
	merged, err := config.LoadFile(configPath, base)
	if err != nil {
		return config.Translation{}, fmt.Errorf("loading config file: %w", err)
	}

	overrides := config.CLIOverrides{}
	if targetLanguage != "" {
		overrides.TargetLanguage = &targetLanguage
	}
	if translationModel != "" {
		overrides.Model = &translationModel
	}
	if translationProvider != "" {
		overrides.Provider = &translationProvider
	}
	if translationInterval != 0 {
		overrides.Interval = &translationInterval
	}
	if maxBufferTime != 0 {
		overrides.MaxBufferTime = &maxBufferTime
	}
	if minTextLength != 0 {
		overrides.MinTextLength = &minTextLength
	}
	if inactivityTimeout != 0 {
		overrides.InactivityTimeout = &inactivityTimeout
	}
	return config.ApplyCLI(merged, overrides), nil
}

func buildTranslator(cfg config.Translation) (xlate.Translator, error) {
	switch cfg.Provider {
	case "openai":
		modelName := cfg.Model
		if modelName == "" {
			modelName = "gpt-4o-mini"
		}
		return xlateprovider.NewOpenAI(modelName, os.Getenv("OPENAI_API_KEY"))
	case "gemini":
		fallthrough
	default:
		modelName := cfg.Model
		if modelName == "" {
			modelName = "gemini-2.0-flash"
		}
		return xlateprovider.NewGemini(modelName, os.Getenv("GEMINI_API_KEY"))
	}
}

func serveLine(ctx context.Context, addr string, newSession sessionFactory, logger logging.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()
	logger.Info("listening", "addr", addr, "transport", "line")

	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.Error("accept failed", "err", err)
			return err
		}
		go func() {
			s := newSession(ctx, transport.NewLineConnection(conn), transport.LineFormatter{})
			if err := s.Run(); err != nil {
				logger.Warn("session ended with error", "err", err)
			}
		}()
	}
}

func serveWebsocket(ctx context.Context, addr string, newSession sessionFactory, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Error("websocket accept failed", "err", err)
			return
		}
		s := newSession(r.Context(), transport.NewWSConnection(wsConn), transport.JSONFormatter{})
		if err := s.Run(); err != nil {
			logger.Warn("session ended with error", "err", err)
		}
	})

	logger.Info("listening", "addr", addr, "transport", "websocket")
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	return srv.ListenAndServe()
}
