package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	openai "github.com/sashabaranov/go-openai"

	"voice-journal-go/internal/aggregator"
	"voice-journal-go/internal/analyzer"
	"voice-journal-go/internal/config"
	"voice-journal-go/internal/export"
	"voice-journal-go/internal/logger"
	"voice-journal-go/internal/pipeline"
	"voice-journal-go/internal/store"
	"voice-journal-go/internal/transcriber"
	"voice-journal-go/internal/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().WithError(err).Fatal("invalid configuration")
	}

	log := logger.New()
	log.WithField("service", "voice-journal-go").Info("starting service")

	openaiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		openaiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	client := openai.NewClientWithConfig(openaiCfg)

	entryStore, cleanup, err := buildStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("store init failed")
	}
	defer cleanup()

	orch := pipeline.New(
		validator.New(cfg.MaxVoiceFileBytes()),
		transcriber.New(client, cfg.WhisperModel,
			transcriber.WithTimeout(cfg.TranscribeTimeout),
			transcriber.WithRetry(cfg.TranscribeMaxTries, cfg.TranscribeBaseDelay)),
		analyzer.New(client, cfg.AnalysisModel,
			analyzer.WithMinWords(cfg.AnalysisMinWords),
			analyzer.WithMaxTags(cfg.AnalysisMaxTags),
			analyzer.WithTimeout(cfg.AnalysisTimeout)),
		entryStore,
	)
	agg := aggregator.New(entryStore)
	exp := export.New(entryStore)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("POST /entries", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "entries")

		userID, ok := authorizedUser(w, r, cfg.AllowedUserIDs)
		if !ok {
			reqLog.Warn("unauthorized or missing user_id")
			return
		}

		file, header, err := r.FormFile("voice")
		if err != nil {
			http.Error(w, "missing voice file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		meta := validator.ArtifactMeta{
			SizeBytes: header.Size,
			MimeType:  header.Header.Get("Content-Type"),
		}
		audio, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "could not read voice file", http.StatusBadRequest)
			return
		}

		start := time.Now()
		outcome, err := orch.Process(r.Context(), pipeline.Submission{
			UserID:   userID,
			Meta:     meta,
			Audio:    audio,
			VoiceRef: r.FormValue("voice_ref"),
		})
		reqLog = reqLog.WithField("duration_ms", time.Since(start).Milliseconds())
		if err != nil {
			reqLog.WithError(err).Error("storage failure")
			http.Error(w, "storage unavailable", http.StatusInternalServerError)
			return
		}

		switch outcome.Kind {
		case pipeline.OutcomeRejected:
			reqLog.WithField("reason", outcome.Reason).Info("submission rejected")
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": outcome.Reason})
		case pipeline.OutcomeFailed:
			reqLog.WithField("reason", outcome.Reason).Info("submission failed")
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": outcome.Reason})
		default:
			reqLog.WithField("entry_id", outcome.Entry.ID).Info("entry created")
			writeJSON(w, http.StatusCreated, outcome.Entry)
		}
	})

	mux.HandleFunc("GET /summary", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "summary")

		userID, ok := authorizedUser(w, r, cfg.AllowedUserIDs)
		if !ok {
			return
		}
		period, ok := aggregator.ParsePeriod(r.URL.Query().Get("period"))
		if !ok {
			http.Error(w, "period must be one of today, week, month", http.StatusBadRequest)
			return
		}

		rollup, err := agg.Summarize(r.Context(), userID, period, time.Now())
		if err != nil {
			reqLog.WithError(err).Error("summarize failed")
			http.Error(w, "could not build summary", http.StatusInternalServerError)
			return
		}

		if r.URL.Query().Get("format") == "text" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprint(w, aggregator.Render(rollup))
			return
		}
		if rollup == nil {
			writeJSON(w, http.StatusOK, map[string]any{"empty": true})
			return
		}
		writeJSON(w, http.StatusOK, rollup)
	})

	mux.HandleFunc("GET /export", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "export")

		userID, ok := authorizedUser(w, r, cfg.AllowedUserIDs)
		if !ok {
			return
		}
		format, ok := export.ParseFormat(r.URL.Query().Get("format"))
		if !ok {
			format = export.FormatJSON
		}

		data, err := exp.Export(r.Context(), userID, format)
		if err != nil {
			reqLog.WithError(err).Error("export failed")
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=journal.%s", format))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func buildStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemStore(), func() {}, nil
	}
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	pg := store.NewPgStore(pool)
	if err := pg.EnsureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

// authorizedUser parses user_id and applies the whitelist. An empty
// whitelist allows everyone, matching the bot's behavior.
func authorizedUser(w http.ResponseWriter, r *http.Request, allowed []int64) (int64, bool) {
	raw := r.FormValue("user_id")
	if raw == "" {
		raw = r.URL.Query().Get("user_id")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "missing or invalid user_id", http.StatusBadRequest)
		return 0, false
	}
	if len(allowed) > 0 && !slices.Contains(allowed, userID) {
		http.Error(w, "user is not authorized", http.StatusForbidden)
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
