package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Schemas this listener understands. Frames carrying any other schema are
// discarded at the transport.
const (
	SchemaCommodity = "https://eddn.edcd.io/schemas/commodity/3"
	SchemaJournal   = "https://eddn.edcd.io/schemas/journal/1"
)

// Envelope is the outer wire structure of every relay frame.
type Envelope struct {
	SchemaRef string          `json:"$schemaRef"`
	Header    Header          `json:"header"`
	Message   json.RawMessage `json:"message"`
}

// Header identifies the uploading client.
type Header struct {
	UploaderID      string `json:"uploaderID"`
	SoftwareName    string `json:"softwareName"`
	SoftwareVersion string `json:"softwareVersion"`
}

// CommodityMessage is one station market snapshot.
type CommodityMessage struct {
	SystemName  string           `json:"systemName"`
	StationName string           `json:"stationName"`
	Timestamp   string           `json:"timestamp"`
	Commodities []CommodityEntry `json:"commodities"`
}

// CommodityEntry is one commodity line in a market snapshot. Prices follow
// the uploader's perspective: sellPrice is what the station pays (our demand
// side), buyPrice is what the station charges (our supply side).
type CommodityEntry struct {
	Name      string `json:"name"`
	SellPrice int    `json:"sellPrice"`
	BuyPrice  int    `json:"buyPrice"`
	Demand    int    `json:"demand"`
	Stock     int    `json:"stock"`
}

// JournalMessage carries system demographics from player journal events.
type JournalMessage struct {
	Timestamp        string           `json:"timestamp"`
	StarSystem       string           `json:"StarSystem"`
	BodyType         string           `json:"BodyType"`
	Population       *int64           `json:"Population"`
	SystemSecurity   string           `json:"SystemSecurity"`
	SystemGovernment string           `json:"SystemGovernment"`
	SystemAllegiance string           `json:"SystemAllegiance"`
	SystemFaction    SystemFaction    `json:"SystemFaction"`
	Factions         []JournalFaction `json:"Factions"`
}

// SystemFaction names the faction controlling a system.
type SystemFaction struct {
	Name string `json:"Name"`
}

// JournalFaction is one minor faction's presence in a journal event.
type JournalFaction struct {
	Name       string  `json:"Name"`
	Government string  `json:"Government"`
	Allegiance string  `json:"Allegiance"`
	Influence  float64 `json:"Influence"`
}

// DecodeFrame decompresses and decodes one relay frame.
func DecodeFrame(frame []byte) (*Envelope, error) {
	zr, err := zlib.NewReader(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("open zlib frame: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress frame: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}
