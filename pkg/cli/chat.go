package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/intake-lab/prosecoach/pkg/cli/config"
	"github.com/intake-lab/prosecoach/pkg/domain/types"
	"github.com/intake-lab/prosecoach/pkg/usecase"
	"github.com/intake-lab/prosecoach/pkg/utils/safe"
)

// cmdChat runs a local coaching REPL against the configured repository. It
// exists for development and demos; the HTTP server is the real surface.
func cmdChat() *cli.Command {
	var jurisdiction string
	var track string
	var sessionID string
	var llmTimeout time.Duration
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "jurisdiction",
			Usage:       "Jurisdiction for a new session",
			Sources:     cli.EnvVars("PROSECOACH_JURISDICTION"),
			Destination: &jurisdiction,
		},
		&cli.StringFlag{
			Name:        "track",
			Usage:       "Case track for a new session (protection_order, custody, landlord_tenant, generic)",
			Sources:     cli.EnvVars("PROSECOACH_TRACK"),
			Destination: &track,
		},
		&cli.StringFlag{
			Name:        "session-id",
			Usage:       "Resume an existing session instead of creating one",
			Destination: &sessionID,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout for each LLM call",
			Value:       60 * time.Second,
			Category:    "LLM",
			Sources:     cli.EnvVars("PROSECOACH_LLM_TIMEOUT"),
			Destination: &llmTimeout,
		},
	}

	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Run an interactive coaching session in the terminal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			intakeCfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load intake configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo)

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize LLM client")
			}

			ucOpts := []usecase.Option{
				usecase.WithIntakeConfig(intakeCfg),
				usecase.WithLLMTimeout(llmTimeout),
			}
			if llmClient != nil {
				ucOpts = append(ucOpts, usecase.WithLLMClient(llmClient))
			}
			uc := usecase.New(repo, ucOpts...)

			return runChat(ctx, uc, chatParams{
				jurisdiction: jurisdiction,
				track:        track,
				sessionID:    sessionID,
			})
		},
	}
}

type chatParams struct {
	jurisdiction string
	track        string
	sessionID    string
}

var (
	coachColor  = color.New(color.FgCyan, color.Bold)
	userColor   = color.New(color.FgGreen)
	metaColor   = color.New(color.FgHiBlack)
	urgentColor = color.New(color.FgRed, color.Bold)
)

func runChat(ctx context.Context, uc *usecase.UseCases, params chatParams) error {
	var id types.SessionID
	if params.sessionID != "" {
		id = types.SessionID(params.sessionID)
		if _, err := uc.Session.Get(ctx, id); err != nil {
			return err
		}
		metaColor.Printf("Resuming session %s\n", id)
	} else {
		s, err := uc.Session.Create(ctx, usecase.CreateSessionInput{
			Jurisdiction: params.jurisdiction,
			Track:        params.track,
		})
		if err != nil {
			return err
		}
		id = s.ID
		metaColor.Printf("Started session %s (%s, %s)\n", s.ID, s.Jurisdiction, s.Track)
	}

	metaColor.Println(`Describe your situation. Commands: "/packet" builds the presentation packet, "/quit" exits.`)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		userColor.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			metaColor.Printf("Session saved: %s\n", id)
			return nil
		case line == "/packet":
			packet, err := uc.Output.Generate(ctx, id, true)
			if err != nil {
				urgentColor.Printf("packet generation failed: %v\n", err)
				continue
			}
			coachColor.Println("--- 2-minute oral script ---")
			fmt.Println(packet.OralScript2Min)
			coachColor.Println("--- 5-minute outline ---")
			fmt.Println(packet.OralOutline5Min)
			if len(packet.Gaps) > 0 {
				coachColor.Println("--- gaps ---")
				for _, gap := range packet.Gaps {
					fmt.Println("- " + gap)
				}
			}
			continue
		}

		_, reply, err := uc.Coach.HandleTurn(ctx, id, line)
		if err != nil {
			urgentColor.Printf("turn failed: %v\n", err)
			continue
		}

		if containsFlag(reply.SafetyFlags, "danger_possible_immediate_risk") || isUrgentReply(reply) {
			urgentColor.Println("coach> " + reply.AssistantMessage)
		} else {
			coachColor.Print("coach> ")
			fmt.Println(reply.AssistantMessage)
		}
		for i, q := range reply.NextQuestions {
			fmt.Printf("  %d. %s\n", i+1, q)
		}
		metaColor.Printf("[progress: %d%%, missing: %s]\n", reply.ProgressPercent, strings.Join(reply.MissingFields, ", "))
	}

	if err := scanner.Err(); err != nil {
		return goerr.Wrap(err, "failed to read input")
	}
	return nil
}

func containsFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func isUrgentReply(reply *usecase.CoachReply) bool {
	for _, f := range reply.SafetyFlags {
		switch f {
		case "self-harm", "harm-to-others", "weapon-mention", "immediate-danger":
			return true
		}
	}
	return false
}
