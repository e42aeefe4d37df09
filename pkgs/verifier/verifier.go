// Package verifier implements the submission verification pipeline: replay
// rejection, timestamp freshness, artifact integrity, signature authenticity,
// and the final ledger commit. Every stage either passes the submission through
// unchanged or terminates processing with a machine-readable rejection reason.
package verifier

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Reason is a machine-readable rejection code reported back to the miner.
type Reason string

const (
	// ReasonNone marks a passed check.
	ReasonNone Reason = ""

	ReasonMissingFields    Reason = "missing_fields"
	ReasonInvalidPayload   Reason = "invalid_payload"
	ReasonReplay           Reason = "replay"
	ReasonRedisError       Reason = "redis_error"
	ReasonStaleTimestamp   Reason = "stale_timestamp"
	ReasonArtifactMismatch Reason = "artifact_hash_mismatch"
	ReasonUnknownMiner     Reason = "unknown_miner"
	ReasonInvalidPubKey    Reason = "invalid_pubkey"
	ReasonBadPubKey        Reason = "bad_pubkey"
	ReasonBadSignature     Reason = "bad_signature"
	ReasonSignatureParse   Reason = "signature_parse_error"
	ReasonDBError          Reason = "db_error"
)

// ErrMinerNotFound is returned by a KeyDirectory when the miner has no
// registered public key. Callers check it with errors.Is; any other error
// from MinerKey is treated as a store failure.
var ErrMinerNotFound = errors.New("miner not found")

// Decision is the terminal outcome of processing one submission.
// Exactly one of the two shapes occurs: Accepted with a fresh ledger
// record ID, or rejected with a Reason.
type Decision struct {
	Accepted bool
	RecordID string
	Reason   Reason
}

// ReplayGuard atomically claims single-use replay tokens. Claim returns
// false when the token was already claimed inside its expiry window. An
// error means the claim store is unreachable, which the pipeline treats
// as a hard rejection: without the guard there is no replay protection.
type ReplayGuard interface {
	Claim(ctx context.Context, token string) (bool, error)
}

// KeyDirectory resolves a miner ID to its registered public key as the
// hex string stored at registration time. Returns ErrMinerNotFound for
// unregistered miners.
type KeyDirectory interface {
	MinerKey(ctx context.Context, minerID int64) (string, error)
}

// Ledger durably records an accepted submission and returns the newly
// generated record ID. Implementations must mint a fresh ID per call.
type Ledger interface {
	Commit(ctx context.Context, p *Payload) (string, error)
}

// ReplayToken derives the single-use token for a submission from its
// signature. The hex string is lowercased so that the token depends only
// on the signature bytes, not on the casing a client happened to send.
func ReplayToken(signatureHex string) string {
	return strings.ToLower(signatureHex)
}

// Config carries the freshness bounds. Zero values fall back to the
// package defaults.
type Config struct {
	// MaxClockSkew is how far into the future a submission timestamp may
	// lie relative to the verifier's clock.
	MaxClockSkew time.Duration
	// MaxSubmissionAge is how far into the past a submission timestamp
	// may lie before it is considered stale.
	MaxSubmissionAge time.Duration
}

const (
	// DefaultMaxClockSkew tolerates submission timestamps up to a minute
	// ahead of the verifier's clock.
	DefaultMaxClockSkew = 60 * time.Second
	// DefaultMaxSubmissionAge expires submissions stamped more than five
	// minutes in the past.
	DefaultMaxSubmissionAge = 300 * time.Second
)

// Pipeline runs the fixed-order verification stages over one submission
// envelope. It holds no per-submission state; a single Pipeline is shared
// by all concurrent requests, and the replay guard plus the durable store
// are the only synchronization points between them.
type Pipeline struct {
	replay ReplayGuard
	keys   KeyDirectory
	ledger Ledger

	maxSkew time.Duration
	maxAge  time.Duration
	now     func() time.Time
}

// New assembles a Pipeline from its collaborators.
func New(cfg Config, replay ReplayGuard, keys KeyDirectory, ledger Ledger) *Pipeline {
	if cfg.MaxClockSkew <= 0 {
		cfg.MaxClockSkew = DefaultMaxClockSkew
	}
	if cfg.MaxSubmissionAge <= 0 {
		cfg.MaxSubmissionAge = DefaultMaxSubmissionAge
	}
	return &Pipeline{
		replay:  replay,
		keys:    keys,
		ledger:  ledger,
		maxSkew: cfg.MaxClockSkew,
		maxAge:  cfg.MaxSubmissionAge,
		now:     time.Now,
	}
}

// Process verifies one submission envelope and returns the decision.
// Stage order is fixed: replay claim runs first so that a replayed request
// is rejected before any expensive work, and the ledger commit runs last so
// that nothing unverified ever reaches durable storage. Every submission
// ends in exactly one logged decision.
func (p *Pipeline) Process(ctx context.Context, env Envelope) Decision {
	payload, d := p.run(ctx, env)
	if d.Accepted {
		log.Infof("accepted submission %s: miner=%d task=%s performance=%g",
			d.RecordID, payload.MinerID, payload.TaskID, payload.Performance)
	} else if payload != nil {
		log.Warnf("rejected submission: miner=%d task=%s reason=%s",
			payload.MinerID, payload.TaskID, d.Reason)
	} else {
		log.Warnf("rejected submission: reason=%s", d.Reason)
	}
	return d
}

func (p *Pipeline) run(ctx context.Context, env Envelope) (*Payload, Decision) {
	if len(env.PayloadJSON) == 0 || env.SignatureHex == "" || len(env.Artifact) == 0 {
		return nil, reject(ReasonMissingFields)
	}

	payload, err := ParsePayload(env.PayloadJSON)
	if err != nil {
		log.Debugf("bad payload json: %v", err)
		return nil, reject(ReasonInvalidPayload)
	}

	claimed, err := p.replay.Claim(ctx, ReplayToken(env.SignatureHex))
	if err != nil {
		log.Errorf("replay claim failed: %v", err)
		return payload, reject(ReasonRedisError)
	}
	if !claimed {
		return payload, reject(ReasonReplay)
	}

	switch CheckFreshness(payload.Timestamp, p.now(), p.maxSkew, p.maxAge) {
	case Fresh:
	case TooFarFuture:
		log.Debugf("timestamp %d ahead of verifier clock: miner=%d", payload.Timestamp, payload.MinerID)
		return payload, reject(ReasonStaleTimestamp)
	case TooStale:
		log.Debugf("timestamp %d expired: miner=%d", payload.Timestamp, payload.MinerID)
		return payload, reject(ReasonStaleTimestamp)
	}

	if !DigestMatches(env.Artifact, payload.ArtifactHash) {
		return payload, reject(ReasonArtifactMismatch)
	}

	keyHex, err := p.keys.MinerKey(ctx, payload.MinerID)
	if errors.Is(err, ErrMinerNotFound) {
		return payload, reject(ReasonUnknownMiner)
	}
	if err != nil {
		log.Errorf("miner key lookup failed: miner=%d err=%v", payload.MinerID, err)
		return payload, reject(ReasonDBError)
	}

	pub, r := DecodePublicKey(keyHex)
	if r != ReasonNone {
		return payload, reject(r)
	}
	if r := VerifySignature(env.PayloadJSON, env.SignatureHex, pub); r != ReasonNone {
		return payload, reject(r)
	}

	recordID, err := p.ledger.Commit(ctx, payload)
	if err != nil {
		log.Errorf("ledger commit failed: miner=%d task=%s err=%v", payload.MinerID, payload.TaskID, err)
		return payload, reject(ReasonDBError)
	}
	return payload, Decision{Accepted: true, RecordID: recordID}
}

func reject(r Reason) Decision {
	return Decision{Reason: r}
}
