// Package telegram is a thin serving layer over the orchestrator: a photo
// becomes a Submit, and when a workflow escalates, the next text message
// from that chat becomes the human correction.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"labelscan/internal/extract"
	"labelscan/internal/workflow"
)

type Router struct {
	Bot  *tgbotapi.BotAPI
	Orch *workflow.Orchestrator

	// chat flags applied to the next photo
	skipReview modeMap
}

func NewRouter(bot *tgbotapi.BotAPI, orch *workflow.Orchestrator) *Router {
	return &Router{Bot: bot, Orch: orch}
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.handleCommand(msg)
	case len(msg.Photo) > 0:
		r.handlePhoto(msg)
	case strings.TrimSpace(msg.Text) != "":
		r.handleText(msg)
	default:
		r.send(cid, "Send me a photo of a handwritten label.")
	}
}

func (r *Router) handleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.send(cid, "Send a photo of a handwritten label and I will transcribe it. "+
			"Commands: /skipreview on|off")
	case "skipreview":
		arg := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
		on := arg == "on" || arg == "1" || arg == "true"
		r.skipReview.set(cid, on)
		r.send(cid, fmt.Sprintf("skip_review is now %t", on))
	default:
		r.send(cid, "Unknown command.")
	}
}

func (r *Router) handlePhoto(msg *tgbotapi.Message) {
	cid := msg.Chat.ID

	ph := msg.Photo[len(msg.Photo)-1]
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: ph.FileID})
	if err != nil {
		r.sendError(cid, err)
		return
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.Bot.Token, file.FilePath)
	img, err := download(url)
	if err != nil {
		r.sendError(cid, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	st, err := r.Orch.Submit(ctx, workflow.Request{
		Image:      img,
		SkipReview: r.skipReview.get(cid),
	})
	if err != nil {
		r.sendError(cid, err)
		return
	}

	switch st.NextStep {
	case workflow.StepHumanReview:
		awaitCorrection.Store(cid, st.ID)
		r.send(cid, fmt.Sprintf(
			"I am not confident in this reading:\n\n%s\n\nReply with the corrected text to finish (workflow %s).",
			st.Recognition.Text, shortID(st.ID)))
	default:
		r.send(cid, renderResult(st))
	}
}

// handleText treats plain text as a correction when one is awaited.
func (r *Router) handleText(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	v, ok := awaitCorrection.Load(cid)
	if !ok {
		r.send(cid, "Send me a photo of a handwritten label.")
		return
	}
	workflowID := v.(string)

	text := strings.TrimSpace(msg.Text)
	st, err := r.Orch.SubmitCorrection(context.Background(), workflow.Correction{
		WorkflowID:     workflowID,
		Text:           text,
		StructuredData: extract.FromText(text),
		Comments:       "corrected via telegram",
	})
	if err != nil {
		r.sendError(cid, err)
		awaitCorrection.Delete(cid)
		return
	}
	awaitCorrection.Delete(cid)
	r.send(cid, "Thanks, correction applied.\n\n"+renderResult(st))
}

func renderResult(st *workflow.State) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Result (%s):\n%s\n", st.NextStep, st.FinalResult.Text)
	if len(st.FinalResult.StructuredData) > 0 {
		sb.WriteString("\nFields:\n")
		for k, v := range st.FinalResult.StructuredData {
			fmt.Fprintf(&sb, "  %s: %s\n", k, v)
		}
	}
	fmt.Fprintf(&sb, "\nConfidence: %.0f%%", st.FinalResult.Confidence*100)
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func (r *Router) send(cid int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(cid, text)); err != nil {
		log.Printf("telegram send: %v", err)
	}
}

func (r *Router) sendError(cid int64, err error) {
	r.send(cid, "Something went wrong: "+err.Error())
}

func download(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
