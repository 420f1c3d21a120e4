package logging

import (
	"os"
	"strings"
	"time"

	"github.com/2beens/apexhq/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// rotated files kept around, a couple of weeks is enough to debug a sync issue
const (
	logMaxSizeMB  = 20
	logMaxBackups = 14
	logMaxAgeDays = 30
)

type LoggerSetupParams struct {
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool
	Environment   string
	// ServiceName is added to every entry and used as the sentry server name
	ServiceName   string
	SentryEnabled bool
	SentryDSN     string
}

func Setup(params LoggerSetupParams) {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	}

	if params.ServiceName != "" {
		logrus.AddHook(&serviceHook{service: params.ServiceName})
	}

	if params.SentryEnabled {
		err := sentry.Init(sentry.ClientOptions{
			Environment:      params.Environment,
			Dsn:              params.SentryDSN,
			TracesSampleRate: tracesSampleRate(params.Environment),
			ServerName:       params.ServiceName,
		})
		if err != nil {
			logrus.Errorf("sentry.Init: %s", err)
		}

		hook := NewSentryHook([]logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		logrus.AddHook(hook)

		logrus.Infoln("Sentry set up successfully")
	}

	logrus.SetLevel(GetLevel(params.LogLevel))

	if params.LogFileName == "" {
		logrus.SetOutput(os.Stdout)
		logrus.Println("writing logs only to STDOUT")
		return
	}

	fileLogger := newFileLogger(params.LogFileName)
	if params.LogToStdout {
		logrus.SetOutput(pkg.NewCombinedWriter(os.Stdout, fileLogger))
		logrus.Printf("writing logs to [%s] and STDOUT", fileLogger.Filename)
	} else {
		logrus.SetOutput(fileLogger)
	}
}

func newFileLogger(fileName string) *lumberjack.Logger {
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	return &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		LocalTime:  false, // UTC
		Compress:   true,
	}
}

// every coach call is traced in dev, production only samples them
func tracesSampleRate(environment string) float64 {
	switch strings.ToLower(environment) {
	case "prod", "production":
		return 0.2
	default:
		return 1.0
	}
}

func GetLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "info":
		return logrus.InfoLevel
	case "trace":
		return logrus.TraceLevel
	case "warn":
		return logrus.WarnLevel
	default:
		return logrus.TraceLevel
	}
}

// serviceHook stamps entries with the service name, the log shipper mixes
// files of several services
type serviceHook struct {
	service string
}

func (h *serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *serviceHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["service"]; !ok {
		entry.Data["service"] = h.service
	}
	return nil
}
