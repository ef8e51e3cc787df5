package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/app"
	"alfredoptarigan/interview-simulator/internal/config"
	"alfredoptarigan/interview-simulator/internal/logger"
	"alfredoptarigan/interview-simulator/internal/models"
	"alfredoptarigan/interview-simulator/internal/repositories"
	"alfredoptarigan/interview-simulator/internal/services"
)

var personaItems = []string{
	string(models.PersonaSupportive),
	string(models.PersonaNeutral),
	string(models.PersonaAdversarial),
}

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run an interactive mock interview in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return practice(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(practiceCmd)

	practiceCmd.Flags().StringP("persona", "p", "", "interviewer persona (supportive, neutral, adversarial); prompts when unset")
	practiceCmd.Flags().String("jd", "", "job description file (.pdf or .txt)")
	practiceCmd.Flags().String("resume", "", "resume file (.pdf or .txt)")
	practiceCmd.Flags().String("store", "memory", "where to keep the session: memory or sqlite")
	practiceCmd.Flags().String("sqlite-path", "./interview.db", "sqlite database file when --store=sqlite")

	for _, name := range []string{"persona", "jd", "resume", "store", "sqlite-path"} {
		if err := viper.BindPFlag(name, practiceCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding %s flag: %v", name, err))
		}
	}
}

func practice(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg := config.Load()
	log := logger.Must(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
		File:  cfg.Log.File,
	})
	defer func() { _ = log.Sync() }()

	extractor := services.NewTextExtractor()
	jd, err := readDocument(extractor, viper.GetString("jd"))
	if err != nil {
		return err
	}
	resume, err := readDocument(extractor, viper.GetString("resume"))
	if err != nil {
		return err
	}
	if jd == "" && resume == "" {
		return errors.New("pass --jd and/or --resume")
	}

	persona, err := choosePersona(viper.GetString("persona"))
	if err != nil {
		return err
	}

	stores, err := openStores(cfg, log)
	if err != nil {
		return err
	}

	svc, err := app.Build(ctx, cfg, stores, log)
	if err != nil {
		return err
	}

	fmt.Println("⏳ Preparing your interview...")
	started, err := svc.Orchestrator.StartSession(ctx, services.StartRequest{
		Persona:            persona,
		JobDescriptionText: jd,
		ResumeText:         resume,
	})
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	log.Debug("session started", logger.SessionFields(started.SessionID.String(), string(persona))...)

	fmt.Printf("\n🎙️  %s\n\n", started.FirstQuestion)

	for {
		answer, err := askAnswer()
		if err != nil {
			return err
		}

		res, err := svc.Orchestrator.SubmitAnswer(ctx, started.SessionID, answer)
		switch {
		case errors.Is(err, services.ErrEmptyAnswer):
			fmt.Println("Please type an answer before pressing ENTER.")
			continue
		case errors.Is(err, services.ErrGatewayUnavailable):
			fmt.Println("⚠️  The interviewer is unavailable right now. Try answering again.")
			continue
		case err != nil:
			return fmt.Errorf("submitting answer: %w", err)
		}

		fmt.Printf("\n🎙️  %s\n\n", res.NextInterviewerText)
		if res.SessionCompleted {
			break
		}
	}

	return printOutcome(ctx, svc, started.SessionID)
}

func printOutcome(ctx context.Context, svc *app.Services, sessionID uuid.UUID) error {
	turns, err := svc.Orchestrator.Transcript(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading transcript: %w", err)
	}
	rows := make([][]string, 0, len(turns))
	for _, turn := range turns {
		rows = append(rows, []string{
			fmt.Sprint(turn.SequenceNumber),
			string(turn.Speaker),
			string(turn.Kind),
			turn.Text,
		})
	}
	fmt.Println(renderTable("Transcript", []string{"#", "Speaker", "Kind", "Text"}, rows))

	fmt.Println("⏳ Writing your report...")
	reportCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	report, err := svc.Reports.GetReport(reportCtx, sessionID, false)
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}

	reportRows := [][]string{{"Summary", report.Summary}}
	reportRows = append(reportRows, listRows("Strength", report.Strengths)...)
	reportRows = append(reportRows, listRows("Risk", report.Risks)...)
	reportRows = append(reportRows, listRows("Recommendation", report.Recommendations)...)
	fmt.Println(renderTable("Report", []string{"Section", "Notes"}, reportRows))

	return nil
}

func listRows(label string, items []string) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{label, item})
	}
	return rows
}

func choosePersona(raw string) (models.Persona, error) {
	if strings.TrimSpace(raw) != "" {
		return services.ParsePersona(raw)
	}

	personaPrompt := promptui.Select{
		Label: "Choose your interviewer",
		Items: personaItems,
	}
	_, selected, err := personaPrompt.Run()
	if err != nil {
		return "", err
	}
	return models.Persona(selected), nil
}

func askAnswer() (string, error) {
	answerPrompt := promptui.Prompt{
		Label: "Your answer",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("answer cannot be empty")
			}
			return nil
		},
	}
	return answerPrompt.Run()
}

func readDocument(extractor services.TextExtractor, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	text, err := extractor.ExtractText(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return text, nil
}

func openStores(cfg *config.Config, log *zap.Logger) (app.Stores, error) {
	switch viper.GetString("store") {
	case "sqlite":
		cfg.Database.Driver = "sqlite"
		cfg.Database.SQLitePath = viper.GetString("sqlite-path")
		db, err := config.InitDatabase(cfg, log)
		if err != nil {
			return app.Stores{}, err
		}
		return app.Stores{
			Sessions: repositories.NewSessionRepository(db),
			Turns:    repositories.NewTurnRepository(db),
			Reports:  repositories.NewReportRepository(db),
		}, nil
	case "memory", "":
		store := repositories.NewMemoryStore()
		return app.Stores{
			Sessions: store.Sessions(),
			Turns:    store.Turns(),
			Reports:  store.Reports(),
		}, nil
	default:
		return app.Stores{}, fmt.Errorf("unknown store %q", viper.GetString("store"))
	}
}
