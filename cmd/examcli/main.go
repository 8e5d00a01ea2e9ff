// Command examcli runs one exam session in the terminal, without the HTTP
// server. Keys and commands are read a line at a time from stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/SAP-F-2025/accessible-exam-service/internal/accessibility"
	"github.com/SAP-F-2025/accessible-exam-service/internal/catalog"
	"github.com/SAP-F-2025/accessible-exam-service/internal/config"
	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories/memory"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
)

type cli struct {
	sessions services.SessionService
	voice    services.VoiceService
	sheets   services.AnswerSheetService
	bus      *events.Bus
	session  *services.ExamSession
	cancel   context.CancelFunc
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Logs go to stderr so they do not interleave with the exam screen
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	questions := catalog.Source(catalog.NewStatic(catalog.Defaults()))
	if cfg.Catalog.QuestionsFile != "" {
		loader := catalog.NewLoader(cfg.Catalog.QuestionsFile, logger)
		if _, err := loader.Load(); err != nil {
			log.Fatalf("Failed to load questions: %v", err)
		}
		questions = loader
	}

	var transcriber transcription.Transcriber = transcription.Unavailable{}
	if cfg.Transcription.APIKey != "" {
		gemini, err := transcription.NewGeminiTranscriber(context.Background(), cfg.Transcription.APIKey, cfg.Transcription.Model, logger)
		if err != nil {
			color.Yellow("Voice input unavailable: %v", err)
		} else {
			defer gemini.Close()
			transcriber = gemini
		}
	}

	bus := events.NewBus(events.BusConfig{}, logger)
	defer bus.Close()

	sessions := services.NewSessionService(services.SessionServiceDeps{
		Questions: questions,
		Mirror:    memory.NewSnapshotMemory(),
		Publisher: bus,
		Config: services.SessionConfig{
			ExamDurationSeconds: cfg.Exam.DurationSeconds,
			ExtraTimeMultiplier: cfg.Exam.ExtraTimeMultiplier,
			AutoSubmitOnExpiry:  cfg.Exam.AutoSubmitOnExpiry,
		},
		VoiceAvailable: transcriber.Available(),
		Logger:         logger,
	})
	defer sessions.CloseAll(context.Background())

	app := &cli{
		sessions: sessions,
		voice:    services.NewVoiceService(sessions, transcriber, cfg.Transcription.Timeout, logger),
		sheets:   services.NewAnswerSheetService(sessions, logger),
		bus:      bus,
	}
	if err := app.newSession(); err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	color.Cyan("=== Accessible Exam ===")
	printView(app.session.View())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(prompt(app.session.View().State.Step))
		if !scanner.Scan() {
			break
		}
		if quit := app.handle(strings.TrimSpace(scanner.Text())); quit {
			break
		}
	}
	color.Green("Goodbye.")
}

func (a *cli) newSession() error {
	if a.session != nil {
		a.cancel()
		_ = a.sessions.Close(context.Background(), a.session.ID())
	}
	session, err := a.sessions.Create(context.Background())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := a.bus.Subscribe(ctx, session.ID())
	if err != nil {
		cancel()
		return err
	}
	a.session, a.cancel = session, cancel

	// the clock can end the exam between two commands
	go func() {
		for ev := range stream {
			if ev.Type == events.EventTimedOut {
				color.Red("\nTime is up, your exam was submitted.")
				if ev.View != nil {
					printView(*ev.View)
				}
			}
		}
	}()
	return nil
}

func prompt(step models.AppStep) string {
	switch step {
	case models.StepLogin:
		return "candidate id> "
	case models.StepDisabilitySelect:
		return "profile (number or name)> "
	case models.StepConfirmation:
		return "export <file> | new | q> "
	}
	return "> "
}

// handle applies one input line and reports whether to quit.
func (a *cli) handle(line string) bool {
	if line == "" {
		return false
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "q", "quit":
		return true
	case "help", "?":
		printHelp()
		return false
	case "view":
		printView(a.session.View())
		return false
	}

	view := a.session.View()
	switch view.State.Step {
	case models.StepLogin:
		a.report(a.session.Login(line))

	case models.StepDisabilitySelect:
		category := parseCategory(line)
		if !accessibility.IsValid(category) {
			color.Yellow("Unknown profile %q, pick a number or name from the table.", line)
			printProfiles()
			return false
		}
		a.report(a.session.SelectCategory(category))

	case models.StepExam:
		a.exam(cmd, arg)

	case models.StepConfirmation:
		switch cmd {
		case "export":
			a.export(arg)
		case "new":
			if err := a.newSession(); err != nil {
				color.Red("Failed to create session: %v", err)
				return false
			}
			printView(a.session.View())
		default:
			color.Yellow("The exam is over. Use export <file>, new or q.")
		}
	}
	return false
}

func (a *cli) exam(cmd, arg string) {
	switch cmd {
	case "g", "gesture":
		a.dispatch(a.session.Gesture(models.Gesture(arg)))
	case "a", "answer":
		a.answer(arg)
	case "voice":
		a.speak(arg)
	case "x", "exit":
		a.report(a.session.Exit())
	default:
		if !services.IsShortcutKey(cmd) {
			color.Yellow("Unknown input %q, type help for commands.", cmd)
			return
		}
		a.dispatch(a.session.PressKey(cmd))
	}
}

func (a *cli) answer(arg string) {
	view := a.session.View()
	value := arg
	if q := view.Question; q != nil && q.IsMultipleChoice() {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(q.Options) {
			color.Yellow("Choose an option between 1 and %d.", len(q.Options))
			return
		}
		value = q.Options[n-1]
	}
	a.dispatch(a.session.RecordAnswer(0, value))
}

func (a *cli) speak(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		color.Red("Cannot read %s: %v", path, err)
		return
	}
	source := transcription.FromBytes(data, mime.TypeByExtension(filepath.Ext(path)))
	result, err := a.voice.Process(context.Background(), a.session.ID(), source)
	if err != nil {
		color.Red("Voice answer failed: %v", err)
		printView(a.session.View())
		return
	}
	color.Cyan("Heard: %q", result.Transcript)
	printView(result.View)
}

func (a *cli) export(path string) {
	if path == "" {
		path = fmt.Sprintf("answer-sheet-%s.xlsx", a.session.ID())
	}
	f, err := os.Create(path)
	if err != nil {
		color.Red("Cannot create %s: %v", path, err)
		return
	}
	defer f.Close()
	if err := a.sheets.Write(context.Background(), a.session.ID(), f); err != nil {
		color.Red("Export failed: %v", err)
		return
	}
	color.Green("Answer sheet written to %s", path)
}

func (a *cli) dispatch(res services.DispatchResult, err error) {
	if err != nil {
		color.Red("Error: %v", err)
	}
	printView(res.View)
}

func (a *cli) report(view models.SessionView, err error) {
	if err != nil {
		color.Red("Error: %v", err)
	}
	printView(view)
}

// parseCategory accepts a 1-based position in the profile table or a name.
func parseCategory(input string) models.DisabilityCategory {
	categories := accessibility.Categories()
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(categories) {
		return categories[n-1]
	}
	return models.DisabilityCategory(strings.ToUpper(input))
}

func printView(view models.SessionView) {
	state := view.State
	switch state.Step {
	case models.StepLogin:
		color.Cyan("\nLog in with any candidate id.")

	case models.StepDisabilitySelect:
		color.Cyan("\nWelcome %s, choose your accessibility profile:", state.CandidateID)
		printProfiles()

	case models.StepExam:
		header := color.New(color.Bold)
		if state.Config.HighContrast {
			header = color.New(color.Bold, color.FgHiWhite, color.BgBlack)
		}
		header.Printf("\nQuestion %d of %d", view.QuestionNumber, view.QuestionCount)
		timeColor := color.New(color.FgGreen)
		if state.Exam.TimeLeft < 300 {
			timeColor = color.New(color.FgRed, color.Bold)
		}
		timeColor.Printf("   %s left\n", view.TimeDisplay)

		if q := view.Question; q != nil {
			text := q.Text
			if state.Config.LargeText {
				text = strings.ToUpper(text)
			}
			fmt.Println(text)
			for i, opt := range q.Options {
				if opt == view.CurrentAnswer {
					color.Green("  (*) %d. %s", i+1, opt)
				} else {
					fmt.Printf("  ( ) %d. %s\n", i+1, opt)
				}
			}
		}
		fmt.Printf("Answered %d/%d  save: %s  accessibility: %s\n",
			view.AnsweredCount, view.QuestionCount, view.SaveStatus, accessibility.Summary(state.Config))
		if view.ActiveGesture != "" {
			color.Magenta("Gesture: %s", view.ActiveGesture)
		}

	case models.StepConfirmation:
		color.Green("\nExam submitted (%s). Answered %d/%d.", state.Exam.EndReason, view.AnsweredCount, view.QuestionCount)
	}

	if view.Toast != "" {
		color.Yellow(">> %s", view.Toast)
	}
}

func printProfiles() {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Category", "Profile", "Enables"})
	for i, p := range accessibility.Profiles() {
		table.Append([]string{strconv.Itoa(i + 1), string(p.Category), p.Label, p.MapsTo})
	}
	table.Render()
}

func printHelp() {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Input", "Action"})
	for _, row := range [][]string{
		{"n / p", "next / previous question"},
		{"s", "submit (last question only)"},
		{"h l u v t b", "toggle high contrast, large text, simplified UI, voice, speech, large buttons"},
		{"a <n>", "answer option n"},
		{"g next|prev", "simulated swipe"},
		{"voice <file>", "answer from a recording"},
		{"x", "exit the exam"},
		{"view", "show the screen again"},
		{"q", "quit"},
	} {
		table.Append(row)
	}
	table.Render()
}
