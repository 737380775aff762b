package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mcqbank-service/internal/app"
	"mcqbank-service/internal/domain"
	"mcqbank-service/internal/pipeline"
)

const (
	leaderboardSize = 10
	// uploads larger than this are refused before download
	maxUploadBytes = 20 << 20
)

// Bot runs the long-polling update loop and dispatches commands, document
// uploads, and poll answers. The ingest pipeline is optional; without it,
// document uploads are refused with a hint to use the CLI.
type Bot struct {
	api      *tgbotapi.BotAPI
	runner   *app.Runner
	pipeline *pipeline.Pipeline
}

func NewBot(api *tgbotapi.BotAPI, runner *app.Runner, p *pipeline.Pipeline) *Bot {
	return &Bot{api: api, runner: runner, pipeline: p}
}

// Run blocks until ctx is cancelled, processing updates as they arrive.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	cfg.AllowedUpdates = []string{"message", "poll_answer"}

	updates := b.api.GetUpdatesChan(cfg)
	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.PollAnswer != nil:
			b.handlePollAnswer(ctx, update.PollAnswer)
		case update.Message != nil:
			b.handleMessage(ctx, update.Message)
		}
	}
	return ctx.Err()
}

func (b *Bot) handlePollAnswer(ctx context.Context, answer *tgbotapi.PollAnswer) {
	if len(answer.OptionIDs) == 0 {
		// vote retraction, not an answer
		return
	}
	err := b.runner.HandleAnswer(ctx, answer.PollID, answer.User.ID, answer.OptionIDs[0])
	if err != nil && !errors.Is(err, domain.ErrPollNotFound) {
		log.Printf("bot: handle answer for poll %s: %v", answer.PollID, err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}
	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, strings.Join([]string{
			"Quiz bot commands:",
			"/quiz <number> - run a question bundle as timed polls",
			"/abort - stop the running quiz in this chat",
			"/leaderboard - cumulative top scores",
			"Upload a text document to build new bundles from it.",
		}, "\n"))
	case "quiz":
		b.handleQuiz(ctx, msg)
	case "abort":
		if n := b.runner.AbortChat(msg.Chat.ID); n == 0 {
			b.reply(msg.Chat.ID, "No quiz is running in this chat.")
		} else {
			b.reply(msg.Chat.ID, "Quiz aborted.")
		}
	case "leaderboard":
		b.handleLeaderboard(ctx, msg.Chat.ID)
	}
}

func (b *Bot) handleQuiz(ctx context.Context, msg *tgbotapi.Message) {
	seq, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil || seq < 1 {
		b.reply(msg.Chat.ID, "Usage: /quiz <bundle number>")
		return
	}

	go func() {
		err := b.runner.Run(ctx, msg.Chat.ID, seq)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
		case errors.Is(err, domain.ErrBundleNotFound):
			b.reply(msg.Chat.ID, fmt.Sprintf("Bundle %d does not exist.", seq))
		case errors.Is(err, domain.ErrSessionCompleted):
			b.reply(msg.Chat.ID, fmt.Sprintf("Bundle %d was already completed in this chat.", seq))
		default:
			log.Printf("bot: run bundle %d in chat %d: %v", seq, msg.Chat.ID, err)
			b.reply(msg.Chat.ID, "The quiz stopped due to an internal error.")
		}
	}()
}

func (b *Bot) handleLeaderboard(ctx context.Context, chatID int64) {
	board, err := b.runner.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		log.Printf("bot: leaderboard: %v", err)
		b.reply(chatID, "Leaderboard is unavailable right now.")
		return
	}
	if len(board.Entries) == 0 {
		b.reply(chatID, "No scores yet. Finish a quiz to get on the board.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Leaderboard:\n")
	for i, e := range board.Entries {
		fmt.Fprintf(&sb, "%d. user %d: %s\n", i+1, e.UserID, app.FormatScore(e.Score))
	}
	b.reply(chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	if b.pipeline == nil {
		b.reply(msg.Chat.ID, "Document ingest is not enabled on this bot; use the ingest command instead.")
		return
	}
	doc := msg.Document
	if doc.FileSize > maxUploadBytes {
		b.reply(msg.Chat.ID, "That file is too large to process.")
		return
	}

	b.reply(msg.Chat.ID, "Processing document, this can take a while...")
	go func() {
		text, err := b.downloadDocument(ctx, doc.FileID)
		if err != nil {
			log.Printf("bot: download document %s: %v", doc.FileID, err)
			b.reply(msg.Chat.ID, "Could not download the document.")
			return
		}

		report, err := b.pipeline.Run(ctx, text)
		if err != nil {
			if errors.Is(err, domain.ErrNoContent) {
				b.reply(msg.Chat.ID, "The document has no readable text.")
				return
			}
			log.Printf("bot: ingest document %s: %v", doc.FileID, err)
			b.reply(msg.Chat.ID, "Ingest failed partway; see the service logs.")
			return
		}
		b.reply(msg.Chat.ID, formatReport(report))
	}()
}

func (b *Bot) downloadDocument(ctx context.Context, fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch file: status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("bot: reply to chat %d: %v", chatID, err)
	}
}

func formatReport(r domain.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ingest finished: %d questions accepted", r.Accepted)
	if r.Bundles > 0 {
		if r.Bundles == 1 {
			fmt.Fprintf(&sb, " into bundle %d", r.FirstSeq)
		} else {
			fmt.Fprintf(&sb, " into bundles %d-%d", r.FirstSeq, r.FirstSeq+r.Bundles-1)
		}
	}
	sb.WriteString(".\n")
	fmt.Fprintf(&sb, "Extracted %d, generated %d, rejected %d, duplicates %d.", r.Extracted, r.Generated, r.Rejected, r.Duplicates)
	if r.FailedCalls > 0 {
		fmt.Fprintf(&sb, "\n%d generation calls failed and were skipped.", r.FailedCalls)
	}
	return sb.String()
}
