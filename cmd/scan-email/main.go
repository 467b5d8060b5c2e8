package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mikey/phishing-scanner/internal/config"
	"github.com/mikey/phishing-scanner/internal/core"
	"github.com/mikey/phishing-scanner/internal/factory"
	"github.com/mikey/phishing-scanner/internal/forward"
	"github.com/mikey/phishing-scanner/internal/logging"
	"github.com/mikey/phishing-scanner/internal/mailparse"
	"github.com/mikey/phishing-scanner/internal/textnorm"
	"github.com/mikey/phishing-scanner/internal/trust"
	"go.uber.org/zap"
)

var (
	// Classifier flags
	classifierType   = flag.String("classifier", "http", "Classifier backend (http, openai, static)")
	endpoint         = flag.String("endpoint", "http://127.0.0.1:8081/classify", "HTTP classifier endpoint")
	timeout          = flag.Duration("timeout", 10*time.Second, "Classifier request timeout")
	modelVersion     = flag.String("model-version", "model-b", "Model version recorded with the verdict")
	staticLabel      = flag.String("static-label", "legitimate", "Label returned by the static classifier")
	staticConfidence = flag.Float64("static-confidence", 1.0, "Confidence returned by the static classifier")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Trust flags
	whitelistDomains = flag.String("whitelist", "", "Comma-separated list of globally trusted domains")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	// Initialize classifier
	classifierFactory := factory.NewClassifierFactory(cfg, logger)
	classifier, err := classifierFactory.CreateClassifier()
	if err != nil {
		logger.Fatal("Failed to create classifier", zap.Error(err))
	}
	adapter := core.NewClassifierAdapter(classifier)

	// Parse whitelisted domains
	var trustedDomains []string
	if *whitelistDomains != "" {
		trustedDomains = strings.Split(*whitelistDomains, ",")
		for i, domain := range trustedDomains {
			trustedDomains[i] = strings.TrimSpace(domain)
		}
	} else {
		trustedDomains = cfg.GetStringSlice("trust.whitelisted_domains")
	}
	whitelist := trust.NewWhitelist(trustedDomains, logger)

	// Read email from file or stdin
	var raw []byte
	if *inputFile != "" {
		raw, err = os.ReadFile(*inputFile)
		if err != nil {
			logger.Fatal("Failed to read input file", zap.Error(err), zap.String("file", *inputFile))
		}
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatal("Failed to read stdin", zap.Error(err))
		}
		logger.Info("Reading email from stdin")
	}

	// Parse email
	msg, err := mailparse.Parse(raw)
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	body := msg.Body
	if msg.BodyIsHTML {
		body = textnorm.StripHTML(body)
	}

	// Recover the original sender from forwarding boilerplate
	extractor := forward.NewExtractor(logger)
	result := extractor.Extract(msg.Subject, body, msg.Header)

	// The From header usually carries a display name; trust matching and
	// reporting want the bare address
	trueSender := bareAddress(msg.Header("From"))
	if result.IsForwarded {
		trueSender = result.OriginalSender
	}

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", msg.Header("From"))
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Forwarded: %t\n", result.IsForwarded)
	fmt.Printf("True sender: %s\n", trueSender)
	fmt.Printf("Body length: %d bytes\n", len(body))
	fmt.Printf("\n")

	fmt.Printf("=== Analysis ===\n")
	fmt.Printf("Classifier: %s\n", cfg.GetString("classifier.type"))
	fmt.Printf("Model version: %s\n", cfg.GetString("classifier.model_version"))

	startTime := time.Now()

	// Globally trusted senders skip classification entirely
	if matched, ok := whitelist.Match(trueSender); ok {
		verdict := core.TrustedVerdict()
		fmt.Printf("\n=== Results ===\n")
		fmt.Printf("Label: %s (sender domain %q is whitelisted)\n", verdict.Label, matched)
		fmt.Printf("Phishing probability: %.4f\n", verdict.PhishingProbability)
		fmt.Printf("Risk level: %s\n", verdict.RiskLevel)
		fmt.Printf("Source: %s\n", verdict.Source)
		fmt.Printf("Processing time: %v\n", time.Since(startTime))
		return
	}

	verdict, err := adapter.Score(context.Background(), result.CleanedSubject, result.CleanedBody)
	if err != nil {
		logger.Fatal("Failed to classify email", zap.Error(err))
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Label: %s\n", verdict.Label)
	fmt.Printf("Phishing probability: %.4f\n", verdict.PhishingProbability)
	fmt.Printf("Risk level: %s\n", verdict.RiskLevel)
	fmt.Printf("Source: %s\n", verdict.Source)
	fmt.Printf("Processing time: %v\n", duration)
}

// bareAddress reduces an RFC 5322 From value to its address part
func bareAddress(header string) string {
	if parsed, err := mail.ParseAddress(header); err == nil {
		return parsed.Address
	}
	return strings.TrimSpace(header)
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("classifier.type", *classifierType)
	v.Set("classifier.model_version", *modelVersion)

	switch *classifierType {
	case "http":
		v.Set("classifier.endpoint", *endpoint)
		v.Set("classifier.timeout", timeout.String())
	case "openai":
		v.Set("openai.api_key", *openaiAPIKey)
		v.Set("openai.model_name", *openaiModelName)
	case "static":
		v.Set("classifier.static_label", *staticLabel)
		v.Set("classifier.static_confidence", *staticConfidence)
	}

	// Set whitelisted domains
	if *whitelistDomains != "" {
		domains := strings.Split(*whitelistDomains, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("trust.whitelisted_domains", domains)
	} else {
		v.Set("trust.whitelisted_domains", []string{})
	}

	return config.NewFromViper(v)
}
