package helpers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

// InitLogger configures the global logger. LOG_FILE mirrors everything to a
// file in addition to the console; LOG_LEVEL picks the level by name
// (panic, fatal, error, warn, info, debug, trace) and defaults to info.
func InitLogger() {
	// Check if LOG_FILE environment variable is set
	logFile := os.Getenv("LOG_FILE")
	if logFile != "" {
		// Ensure log directory exists
		logDir := filepath.Dir(logFile)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Printf("Failed to create log directory: %v\n", err)
			// Fall back to stdout/stderr
			logFile = ""
		} else {
			// Open log file
			file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				// Fall back to stdout/stderr
				logFile = ""
			} else {
				// Write to both file and stdout/stderr
				log.SetOutput(io.MultiWriter(file, os.Stdout))
			}
		}
	}

	// If no log file or failed to open, use default behavior
	if logFile == "" {
		log.SetOutput(io.Discard) // Send all logs to nowhere by default

		log.AddHook(&writer.Hook{ // Send logs with level higher than warning to stderr
			Writer: os.Stderr,
			LogLevels: []log.Level{
				log.PanicLevel,
				log.FatalLevel,
				log.ErrorLevel,
				log.WarnLevel,
			},
		})
		log.AddHook(&writer.Hook{ // Send info and debug logs to stdout
			Writer: os.Stdout,
			LogLevels: []log.Level{
				log.TraceLevel,
				log.InfoLevel,
				log.DebugLevel,
			},
		})
	}

	log.SetReportCaller(true)

	levelName := os.Getenv("LOG_LEVEL")
	if levelName == "" {
		log.SetLevel(log.InfoLevel)
	} else if level, err := log.ParseLevel(levelName); err != nil {
		fmt.Printf("Unknown LOG_LEVEL %q, using info\n", levelName)
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(level)
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
