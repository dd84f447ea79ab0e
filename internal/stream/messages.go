package stream

import (
	"fmt"
	"time"

	"github.com/star/sunclock/internal/clock"
	"github.com/star/sunclock/internal/solar"
)

// Stream payload types. Every connection starts with one metadataMessage
// followed by a frameMessage per clock tick.

type metadataMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	Mode         string `json:"mode"`
	T            string `json:"t"`
	Title        string `json:"title"`
}

type frameMessage struct {
	Type     string      `json:"type"`
	Seq      uint64      `json:"seq"`
	T        string      `json:"t"`
	Title    string      `json:"title"`
	Subsolar solar.Point `json:"subsolar"`
	MapURL   string      `json:"map_url"`
}

func buildMetadataMessage(id string, mode clock.Mode, now time.Time) metadataMessage {
	return metadataMessage{
		Type:         "metadata",
		ConnectionID: id,
		Mode:         string(mode),
		T:            now.UTC().Format(time.RFC3339),
		Title:        clock.Title(now),
	}
}

// buildFrameMessage formats a tick. The map URL carries the sequence number
// so browsers refetch the image on every frame.
func buildFrameMessage(tick clock.Tick) frameMessage {
	return frameMessage{
		Type:     "frame",
		Seq:      tick.Seq,
		T:        tick.Time.UTC().Format(time.RFC3339),
		Title:    tick.Title,
		Subsolar: solar.Subsolar(tick.Time),
		MapURL:   fmt.Sprintf("/api/v1/map.png?v=%d", tick.Seq),
	}
}
