package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dudu/facemode/internal/camera"
	"github.com/dudu/facemode/internal/config"
	"github.com/dudu/facemode/internal/control"
	"github.com/dudu/facemode/internal/emotion"
	"github.com/dudu/facemode/internal/logging"
	"github.com/dudu/facemode/internal/mode"
)

// minSendGap keeps consecutive modes in separate reads on the listener
const minSendGap = 100 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	addr := flag.String("connect", "", "Control socket address (default from config)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "voicectl - sends display modes from recognized phrases\n\n")
		fmt.Fprintf(os.Stderr, "Reads one recognized phrase per line on stdin.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: voicectl [options]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Control.Address = *addr
	}
	if err := logging.Setup(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type controller struct {
	cfg        config.Voice
	snapshot   func() ([]byte, error)
	client     *control.Client
	classifier emotion.Classifier
	mapping    emotion.Mapping
	lastSend   time.Time
	log        *logrus.Entry
}

func run(ctx context.Context, cfg *config.Config, in io.Reader) error {
	log := logging.Component("voicectl")

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	client, err := control.Dial(dialCtx, cfg.Control.Address)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	c := &controller{
		cfg:     cfg.Voice,
		client:  client,
		mapping: emotion.Mapping(cfg.Voice.EmotionModes),
		log:     log,
	}
	c.snapshot = func() ([]byte, error) {
		return camera.Snapshot(cfg.Camera, cfg.Voice.PhotoPath)
	}

	if key := os.Getenv(cfg.Voice.APIKeyEnv); key != "" {
		classifier, err := emotion.NewGeminiClassifier(ctx, key, cfg.Voice.EmotionModel)
		if err != nil {
			return err
		}
		c.classifier = classifier
	} else {
		log.WithField("env", cfg.Voice.APIKeyEnv).Warn("no API key, emotion classification disabled")
	}

	log.WithField("addr", cfg.Control.Address).Info("connected, waiting for phrases")

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("failed to read phrases: %w", err)
					}
				default:
				}
				return nil
			}
			done, err := c.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// handle reacts to one recognized phrase and reports whether to exit
func (c *controller) handle(ctx context.Context, phrase string) (bool, error) {
	log := c.log.WithField("phrase", phrase)

	switch phrase {
	case c.cfg.GreetPhrase:
		if err := c.send(c.cfg.GreetMode); err != nil {
			return false, err
		}
		log.WithField("mode", c.cfg.GreetMode).Info("greeting")

		label, err := c.classify(ctx)
		if err != nil {
			log.WithError(err).Warn("emotion classification failed, keeping greeting mode")
			return false, nil
		}
		m := c.mapping.Mode(label)
		log.WithFields(logrus.Fields{"emotion": label, "mode": m}).Info("dominant emotion")
		// neutral and unmapped emotions keep the greeting overlay
		if m != mode.None && m != c.cfg.GreetMode {
			return false, c.send(m)
		}
		return false, nil

	case c.cfg.FarewellPhrase:
		log.Info("farewell, clearing overlay")
		return true, c.send(0)

	default:
		log.Debug("ignoring phrase")
		return false, nil
	}
}

func (c *controller) classify(ctx context.Context) (string, error) {
	if c.classifier == nil {
		return "", fmt.Errorf("no classifier configured")
	}

	jpeg, err := c.snapshot()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	scores, err := c.classifier.Classify(ctx, jpeg)
	if err != nil {
		return "", err
	}
	c.log.WithField("scores", scores).Debug("emotion scores")
	return emotion.Dominant(scores, c.cfg.MinScore), nil
}

func (c *controller) send(m int) error {
	if wait := minSendGap - time.Since(c.lastSend); wait > 0 {
		time.Sleep(wait)
	}
	c.lastSend = time.Now()
	return c.client.Send(m)
}
