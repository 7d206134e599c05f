package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/ticktrack/pkg/utils/logging"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]logging.Format{
		"":        logging.FormatAuto,
		"auto":    logging.FormatAuto,
		"console": logging.FormatConsole,
		"JSON":    logging.FormatJSON,
	} {
		got, err := logging.ParseFormat(in)
		gt.NoError(t, err)
		gt.Equal(t, got, want)
	}

	_, err := logging.ParseFormat("xml")
	gt.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	gt.Equal(t, logging.ParseLogLevel("DEBUG"), slog.LevelDebug)
	gt.Equal(t, logging.ParseLogLevel("warning"), slog.LevelWarn)
	gt.Equal(t, logging.ParseLogLevel("error"), slog.LevelError)
	gt.Equal(t, logging.ParseLogLevel("verbose"), slog.LevelInfo)
}

func TestAutoFormatWritesJSONToBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(slog.LevelInfo, &buf)
	logger.Debug("hidden")
	logger.Info("Ticket saved", "ticket_id", "INC-1")

	var entry map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	gt.Equal(t, entry["msg"], "Ticket saved")
	gt.Equal(t, entry["ticket_id"], "INC-1")
}
