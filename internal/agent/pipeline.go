package agent

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"skynix/internal/domain"
	"skynix/internal/intent"
	"skynix/internal/metrics"
	"skynix/internal/speech"
	"skynix/internal/weather"
)

// WeatherFetcher looks up current conditions. Failures come back as an
// error Report, never as a Go error.
type WeatherFetcher interface {
	Fetch(ctx context.Context, city string) weather.Report
}

// VoiceTranscriber turns a voice attachment into text.
type VoiceTranscriber interface {
	Transcribe(ctx context.Context, senderID, fileID string) (string, *speech.Failure)
}

// Outcome labels used for logging and metrics.
const (
	outcomeCommand         = "command"
	outcomeGreeting        = "greeting"
	outcomeWeather         = "weather"
	outcomeWeatherError    = "weather_error"
	outcomeCityNotDetected = "city_not_detected"
	outcomeUnrecognized    = "unrecognized"
	outcomeNotUnderstood   = "not_understood"
	outcomeVoiceError      = "voice_error"
	outcomeRateLimited     = "rate_limited"
	outcomePanic           = "panic"
)

// Pipeline answers one inbound message with exactly one terminal reply.
type Pipeline struct {
	bus            domain.MessageBus
	weather        WeatherFetcher
	speech         VoiceTranscriber
	enhancer       *Enhancer
	limiter        *SenderLimiter
	metrics        *metrics.Collector
	echoTranscript bool
	logger         *slog.Logger
}

type PipelineConfig struct {
	Bus            domain.MessageBus
	Weather        WeatherFetcher
	Speech         VoiceTranscriber // optional: voice messages get an error reply without it
	Enhancer       *Enhancer
	Limiter        *SenderLimiter // optional
	Metrics        *metrics.Collector
	EchoTranscript bool // send "You said: ..." before answering a voice message
	Logger         *slog.Logger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Enhancer == nil {
		cfg.Enhancer = NewEnhancer(EnhancerConfig{Metrics: cfg.Metrics, Logger: cfg.Logger})
	}
	return &Pipeline{
		bus:            cfg.Bus,
		weather:        cfg.Weather,
		speech:         cfg.Speech,
		enhancer:       cfg.Enhancer,
		limiter:        cfg.Limiter,
		metrics:        cfg.Metrics,
		echoTranscript: cfg.EchoTranscript,
		logger:         cfg.Logger,
	}
}

// responder sends replies for a single inbound message and remembers whether
// the terminal one went out.
type responder struct {
	p       *Pipeline
	msg     domain.InboundMessage
	replied bool
}

func (r *responder) send(out domain.OutboundMessage) {
	out.Channel = r.msg.Channel
	out.ChatID = r.msg.ChatID
	if err := r.p.bus.SendOutbound(out); err != nil {
		r.p.logger.Error("send reply failed",
			"channel", r.msg.Channel,
			"chat_id", r.msg.ChatID,
			"error", err,
		)
	}
}

// reply sends the terminal reply.
func (r *responder) reply(text string) {
	r.replied = true
	r.send(domain.OutboundMessage{Content: text})
}

// note sends an intermediate message.
func (r *responder) note(text string) {
	r.send(domain.OutboundMessage{Content: text})
}

// typing is best-effort.
func (r *responder) typing() {
	err := r.p.bus.SendOutbound(domain.OutboundMessage{
		Channel: r.msg.Channel,
		ChatID:  r.msg.ChatID,
		Action:  domain.ActionTyping,
	})
	if err != nil {
		r.p.logger.Debug("typing indicator failed", "chat_id", r.msg.ChatID, "error", err)
	}
}

// Handle processes msg to completion. It never panics and always sends
// exactly one terminal reply.
func (p *Pipeline) Handle(ctx context.Context, msg domain.InboundMessage) {
	defer p.metrics.Begin()()
	start := time.Now()
	r := &responder{p: p, msg: msg}

	defer func() {
		if v := recover(); v != nil {
			p.metrics.Panic()
			p.metrics.Message(string(msg.Kind), outcomePanic)
			p.logger.Error("panic while handling message",
				"channel", msg.Channel,
				"sender", msg.SenderID,
				"panic", v,
				"stack", string(debug.Stack()),
			)
			if !r.replied {
				r.reply(panicReply)
			}
		}
	}()

	outcome := p.dispatch(ctx, r, msg)
	p.metrics.Message(string(msg.Kind), outcome)
	p.logger.Info("message handled",
		"channel", msg.Channel,
		"sender", msg.SenderID,
		"kind", msg.Kind,
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (p *Pipeline) dispatch(ctx context.Context, r *responder, msg domain.InboundMessage) string {
	if p.limiter != nil && !p.limiter.Allow(msg.SenderID) {
		p.metrics.RateLimited()
		r.reply(rateLimitedReply)
		return outcomeRateLimited
	}

	switch msg.Kind {
	case domain.KindCommand:
		cmd := ParseCommand(msg.Content)
		if msg.Command != "" {
			cmd = &ChatCommand{Name: strings.ToLower(msg.Command)}
		}
		if cmd == nil {
			return p.handleText(ctx, r, msg.Content)
		}
		r.reply(commandReply(cmd))
		return outcomeCommand
	case domain.KindVoice:
		return p.handleVoice(ctx, r, msg)
	default:
		if cmd := ParseCommand(msg.Content); cmd != nil {
			r.reply(commandReply(cmd))
			return outcomeCommand
		}
		return p.handleText(ctx, r, msg.Content)
	}
}

func (p *Pipeline) handleVoice(ctx context.Context, r *responder, msg domain.InboundMessage) string {
	if p.speech == nil {
		r.reply(voiceErrorPrefix + "voice messages are not enabled")
		return outcomeVoiceError
	}

	start := time.Now()
	text, fail := p.speech.Transcribe(ctx, msg.SenderID, msg.VoiceFileID)
	if fail != nil {
		p.metrics.Stage(metrics.StageTranscribe, string(fail.Kind), time.Since(start))
		if fail.Kind == speech.NotUnderstood {
			r.reply(voiceNotUnderstoodReply)
			return outcomeNotUnderstood
		}
		r.reply(voiceErrorPrefix + fail.Err.Error())
		return outcomeVoiceError
	}
	p.metrics.Stage(metrics.StageTranscribe, "ok", time.Since(start))

	if p.echoTranscript {
		r.note(transcriptEchoPrefix + text)
	}
	return p.handleText(ctx, r, text)
}

func (p *Pipeline) handleText(ctx context.Context, r *responder, text string) string {
	in := intent.Extract(text)
	p.logger.Debug("intent extracted", "kind", in.Kind, "city", in.City)

	switch in.Kind {
	case intent.KindGreeting:
		r.typing()
		r.reply(greetingReply)
		return outcomeGreeting
	case intent.KindCityRequest:
		r.typing()
		start := time.Now()
		report := p.weather.Fetch(ctx, in.City)
		outcome := outcomeWeather
		stage := "ok"
		if report.IsError() {
			outcome = outcomeWeatherError
			stage = string(report.Error.Kind)
		}
		p.metrics.Stage(metrics.StageWeather, stage, time.Since(start))
		r.reply(p.enhancer.Enhance(ctx, report.Text()))
		return outcome
	case intent.KindCityNotDetected:
		r.reply(cityNotDetectedReply)
		return outcomeCityNotDetected
	default:
		r.reply(unrecognizedReply)
		return outcomeUnrecognized
	}
}
