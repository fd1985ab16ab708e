package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/papernet/internal/printer"
	"github.com/dyluth/papernet/pkg/paper"
)

type formatter interface {
	FormatEvent(event *paper.Event) error
}

type defaultFormatter struct {
	writer io.Writer
	now    func() time.Time
}

var actionIcons = map[paper.Action]string{
	paper.ActionSubmit:  "📄",
	paper.ActionMatch:   "🤝",
	paper.ActionConfirm: "✅",
	paper.ActionClear:   "🏦",
	paper.ActionCancel:  "🚫",
	paper.ActionFinish:  "🎉",
}

func (f *defaultFormatter) FormatEvent(event *paper.Event) error {
	now := time.Now
	if f.now != nil {
		now = f.now
	}

	icon, ok := actionIcons[event.Action]
	if !ok {
		icon = "•"
	}

	_, err := fmt.Fprintf(f.writer, "[%s] %s %s importer=%s paper=%d state=%s tx=%s\n",
		now().Format("15:04:05"),
		icon,
		event.Action,
		event.Importer,
		event.PaperNumber,
		printer.State(event.State),
		event.TxID,
	)
	return err
}

type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) FormatEvent(event *paper.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(f.writer, "%s\n", data)
	return err
}
