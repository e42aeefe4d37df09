package helpers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// ReportingService pushes rejection reports to an external collector so that
// operators can watch failure rates per miner without scraping logs.
type ReportingService struct {
	url    string
	client *http.Client
}

// RejectionReport is one rejected submission as posted to the collector.
// MinerID and TaskID are zero when the envelope was rejected before its
// payload could be parsed.
type RejectionReport struct {
	MinerID    int64     `json:"miner_id"`
	TaskID     string    `json:"task_id"`
	Reason     string    `json:"reason"`
	ObservedAt time.Time `json:"observed_at"`
}

// InitializeReportingService builds a client posting to <baseURL>/report.
func InitializeReportingService(baseURL string, timeout time.Duration) *ReportingService {
	return &ReportingService{
		url: strings.TrimSuffix(baseURL, "/") + "/report", client: &http.Client{Timeout: timeout},
	}
}

// SendRejectionReport posts one report to the collector. Delivery is best
// effort: failures are logged and dropped, never surfaced to the submitter.
func (s *ReportingService) SendRejectionReport(report RejectionReport) {
	jsonData, err := json.Marshal(&report)
	if err != nil {
		log.Errorln("Unable to marshal rejection report: ", err.Error())
		return
	}
	req, err := http.NewRequest("POST", s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Errorln("Error creating request: ", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Errorln("Error sending rejection report: ", err)
		return
	}
	defer resp.Body.Close()

	log.Debugln("Reporting response status: ", resp.Status)
}
