package scan

import (
	"fmt"

	"asistenciaqr/internal/models"
)

// Cue is an audio cue played by the display.
type Cue string

const (
	CueNone     Cue = ""
	CuePositive Cue = "positive"
	CueNegative Cue = "negative"
)

// Color is a CSS color used for overlays and notices.
type Color string

const (
	ColorPending   Color = "#4e54c8"
	ColorSuccess   Color = "#43e97b"
	ColorDuplicate Color = "#e74c3c"
	ColorNotFound  Color = "#f39c12"
	ColorError     Color = "#e74c3c"
)

// Feedback is what the desk shows for one report outcome.
type Feedback struct {
	Event       EventType
	Cue         Cue
	Color       Color
	MarkPresent bool
	Notice      string
	NoticeColor Color
}

// ConnectivityNotice is shown when a report never reached the backend.
const ConnectivityNotice = "Error de conexión. No se pudo registrar la asistencia."

// FeedbackFor maps a report outcome to its feedback. A non-nil err, or a
// status outside the known three, is a transport failure: notice only.
func FeedbackFor(resp models.ScanResponse, err error) Feedback {
	if err != nil || !resp.Status.Valid() {
		return Feedback{
			Event:       EventScanError,
			Notice:      ConnectivityNotice,
			NoticeColor: ColorError,
		}
	}
	name := resp.StudentName
	if name == "" {
		name = resp.CodigoID
	}
	switch resp.Status {
	case models.ScanSuccess:
		return Feedback{
			Event:       EventScanSuccess,
			Cue:         CuePositive,
			Color:       ColorSuccess,
			MarkPresent: true,
			Notice:      fmt.Sprintf("Asistencia de %s registrada.", name),
			NoticeColor: ColorSuccess,
		}
	case models.ScanDuplicate:
		return Feedback{
			Event:       EventScanDuplicate,
			Cue:         CueNegative,
			Color:       ColorDuplicate,
			Notice:      fmt.Sprintf("%s ya tiene asistencia.", name),
			NoticeColor: ColorDuplicate,
		}
	default:
		return Feedback{
			Event:       EventScanNotFound,
			Cue:         CueNegative,
			Color:       ColorNotFound,
			Notice:      "QR no reconocido.",
			NoticeColor: ColorNotFound,
		}
	}
}
