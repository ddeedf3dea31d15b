package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-live-service/internal/config"
	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/player"
	busredis "trivia-live-service/internal/transport/redis"
)

// NewPlayCmd runs a terminal player client against the Redis transport.
func NewPlayCmd(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a trivia session from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "player display name")
	return cmd
}

func runPlay(ctx context.Context, configPath, name string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis addr not configured; the play command needs a broker")
	}
	if name == "" {
		name = "player-" + uuid.NewString()[:8]
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	bus := busredis.NewTransport(client)
	session := player.NewSession(bus, "player-"+uuid.NewString(), name)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := session.Run(runCtx); err != nil && err != context.Canceled {
			log.Printf("session stopped: %v", err)
		}
	}()

	if err := session.Join(runCtx); err != nil {
		return err
	}
	fmt.Printf("Joined as %s. Type an option number to answer, or 'quit' to leave.\n", name)

	go renderLoop(runCtx, session)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "quit" || line == "exit":
			cancelCtx, cancelLeave := context.WithTimeout(context.Background(), 2*time.Second)
			err := session.Leave(cancelCtx)
			cancelLeave()
			return err
		default:
			choice, err := strconv.Atoi(line)
			if err != nil {
				fmt.Println("enter an option number, or 'quit'")
				continue
			}
			switch err := session.SelectAnswer(runCtx, choice-1); {
			case err == nil:
			case err == domain.ErrNoActiveQuestion:
				fmt.Println("no question is open right now")
			default:
				fmt.Printf("could not submit: %v\n", err)
			}
		}
	}
	return scanner.Err()
}

// renderLoop polls the session and prints whenever the visible state
// changes. Polling keeps the session package free of UI callbacks.
func renderLoop(ctx context.Context, session *player.Session) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var lastState player.State
	var lastQuestionID string
	var lastFeedbackID string
	resultsShown := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, err := session.Snapshot(ctx)
		if err != nil {
			return
		}

		if snap.State != lastState {
			switch snap.State {
			case player.StateAwaitingConfig:
				fmt.Println("Waiting for the host to configure a quiz...")
			case player.StateQuizReady:
				if snap.Config != nil {
					fmt.Printf("Quiz ready: %d questions. Waiting for the first one.\n", snap.Config.QuestionCount)
				}
				resultsShown = false
			}
			lastState = snap.State
		}

		if snap.Question != nil && snap.Question.ID != lastQuestionID {
			lastQuestionID = snap.Question.ID
			fmt.Printf("\nQuestion %d/%d: %s\n", snap.QuestionNumber, snap.TotalQuestions, snap.Question.Text)
			for i, opt := range snap.Question.Options {
				fmt.Printf("  %d) %s\n", i+1, opt)
			}
		}

		if snap.LastResult != nil && snap.LastResult.QuestionID != lastFeedbackID {
			lastFeedbackID = snap.LastResult.QuestionID
			fmt.Printf("%s (answer: %s)\n", snap.LastResult.Feedback, snap.LastResult.CorrectAnswerText)
			if snap.LastResult.Explanation != "" {
				fmt.Printf("  %s\n", snap.LastResult.Explanation)
			}
			fmt.Printf("  Your score: %d points over %d answers\n", snap.Stats.TotalPoints, snap.Stats.QuestionsAnswered)
		}

		if snap.Results != nil && !resultsShown {
			resultsShown = true
			fmt.Println("\nFinal standings:")
			for _, r := range snap.Results.Results {
				fmt.Printf("  #%d %s: %d points (%d answered)\n", r.Rank, r.PlayerName, r.TotalPoints, r.QuestionsAnswered)
			}
			if snap.Results.Winner != nil {
				fmt.Println(snap.Results.Winner.Message)
			}
		}
	}
}
