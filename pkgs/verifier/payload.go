package verifier

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Envelope is one submission as received on the wire, before any parsing.
// PayloadJSON holds the exact bytes the miner signed; the pipeline verifies
// the signature over these bytes and never over a re-serialized form.
type Envelope struct {
	PayloadJSON  []byte
	SignatureHex string
	Artifact     []byte
}

// Payload is the signed body of a submission.
type Payload struct {
	TaskID          string          `json:"task_id"`
	MinerID         int64           `json:"miner_id"`
	Performance     float64         `json:"performance"`
	ArtifactHash    string          `json:"artifact_hash"`
	Hyperparameters json.RawMessage `json:"hyperparameters"`
	Timestamp       uint64          `json:"timestamp"`

	// Nonce travels under the signature like every other field but is never
	// read by the verification flow; replay protection keys on the signature
	// itself, which covers the nonce anyway.
	Nonce uint64 `json:"nonce"`
}

// ParsePayload decodes and validates the signed payload. Unknown fields are
// ignored so that client-side additions do not break older verifiers, but a
// payload missing its task, artifact digest, or timestamp is unusable and
// rejected outright.
func ParsePayload(raw []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "unmarshal payload")
	}
	if p.TaskID == "" {
		return nil, errors.New("payload missing task_id")
	}
	if p.ArtifactHash == "" {
		return nil, errors.New("payload missing artifact_hash")
	}
	if p.Timestamp == 0 {
		return nil, errors.New("payload missing timestamp")
	}
	return &p, nil
}
