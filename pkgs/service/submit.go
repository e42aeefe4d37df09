package service

import (
	"io"
	"mime/multipart"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"miner-submission-server/pkgs/helpers"
	"miner-submission-server/pkgs/verifier"
)

type submitResponse struct {
	Status string  `json:"status"`
	Reason *string `json:"reason"`
}

// handleSubmit runs one multipart submission through the verification
// pipeline. The decision always travels as HTTP 200; acceptance or the
// rejection reason lives in the body.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	env := readEnvelope(r)
	decision := s.pipeline.Process(r.Context(), env)

	if !decision.Accepted && s.reporter != nil {
		report := helpers.RejectionReport{
			Reason:     string(decision.Reason),
			ObservedAt: time.Now().UTC(),
		}
		// Best effort: an envelope rejected before parsing has no
		// miner or task to attribute.
		if p, err := verifier.ParsePayload(env.PayloadJSON); err == nil {
			report.MinerID = p.MinerID
			report.TaskID = p.TaskID
		}
		go s.reporter.SendRejectionReport(report)
	}

	writeJSON(w, http.StatusOK, decisionResponse(decision))
}

// readEnvelope collects the payload, signature, and artifact parts from the
// multipart body. Parts under any other name are skipped, and a truncated or
// malformed body simply yields an incomplete envelope for the pipeline to
// reject.
func readEnvelope(r *http.Request) verifier.Envelope {
	var env verifier.Envelope
	mr, err := r.MultipartReader()
	if err != nil {
		log.Debugln("not a multipart request: ", err.Error())
		return env
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return env
		}
		switch part.FormName() {
		case "payload":
			env.PayloadJSON = readPart(part)
		case "signature":
			env.SignatureHex = string(readPart(part))
		case "artifact":
			env.Artifact = readPart(part)
		}
	}
}

func readPart(p *multipart.Part) []byte {
	data, err := io.ReadAll(p)
	if err != nil {
		log.Debugln("failed to read multipart part: ", err.Error())
		return nil
	}
	return data
}

func decisionResponse(d verifier.Decision) submitResponse {
	if d.Accepted {
		return submitResponse{Status: "accepted"}
	}
	reason := string(d.Reason)
	return submitResponse{Status: "rejected", Reason: &reason}
}
