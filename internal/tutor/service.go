// Package tutor answers clinical-definition questions and produces structured
// nursing procedures, grounded on the knowledge base and cached per query.
package tutor

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tatianab/clinical-sim/internal/clinical"
	"github.com/tatianab/clinical-sim/internal/llm"
	"github.com/tatianab/clinical-sim/internal/store"
)

var (
	ErrMissingQuery = errors.New("missing query")
	// ErrForbiddenQuery is returned for decision-making questions. Its text is
	// shown to the student as is.
	ErrForbiddenQuery = errors.New("Questa modalità fornisce solo definizioni cliniche strutturate. " +
		"Per domande, confronti o decision-making utilizza la modalità avanzata.")
)

const (
	SourceCache = "cache"
	SourceLive  = "live"
)

const (
	kindAsk       = "ask"
	kindProcedure = "procedure"
)

// maxReferences bounds the knowledge-base documents quoted in a prompt.
const maxReferences = 8

//go:embed prompts/ask.txt
var askSystemPrompt string

//go:embed prompts/procedure.txt
var procedureSystemPrompt string

//go:embed prompts/ask_user.txt
var askUserPrompt string

//go:embed prompts/procedure_user.txt
var procedureUserPrompt string

// Store is the persistence the tutor needs.
type Store interface {
	ListDocuments(ctx context.Context, category string, limit int) ([]store.Document, error)
	GetCachedAnswer(ctx context.Context, kind, key string, since time.Time) (store.CachedAnswer, error)
	PutCachedAnswer(ctx context.Context, a store.CachedAnswer) error
}

// Answer is the reply to a definition question.
type Answer struct {
	Source   string `json:"source"`
	Category string `json:"category"`
	Answer   string `json:"answer"`
}

// ProcedureAnswer is the reply to a procedure request.
type ProcedureAnswer struct {
	Source    string    `json:"source"`
	Category  string    `json:"category"`
	Procedure Procedure `json:"answer"`
}

// Procedure is a standard operating procedure. Every list is non-nil.
type Procedure struct {
	Indications              []string `json:"indications"`
	Contraindications        []string `json:"contraindications"`
	Materials                []string `json:"materials"`
	Preparation              []string `json:"preparation"`
	Steps                    []string `json:"steps"`
	Monitoring               []string `json:"monitoring"`
	Complications            []string `json:"complications"`
	CommonErrors             []string `json:"commonErrors"`
	Documentation            []string `json:"documentation"`
	Sources                  []string `json:"sources"`
	InternationalDifferences []string `json:"internationalDifferences"`
}

func (p Procedure) empty() bool {
	for _, l := range [][]string{
		p.Indications, p.Contraindications, p.Materials, p.Preparation,
		p.Steps, p.Monitoring, p.Complications, p.CommonErrors,
		p.Documentation, p.Sources, p.InternationalDifferences,
	} {
		if len(l) > 0 {
			return false
		}
	}
	return true
}

// DecodeProcedure reads the model's procedure object. Missing keys become
// empty lists and unknown keys are ignored; content with none of the keys is
// a content-stage *llm.FormatError.
func DecodeProcedure(content string) (Procedure, error) {
	fields, err := llm.ParseObject(content)
	if err != nil {
		return Procedure{}, err
	}
	p := Procedure{
		Indications:              llm.Strings(fields["indications"]),
		Contraindications:        llm.Strings(fields["contraindications"]),
		Materials:                llm.Strings(fields["materials"]),
		Preparation:              llm.Strings(fields["preparation"]),
		Steps:                    llm.Strings(fields["steps"]),
		Monitoring:               llm.Strings(fields["monitoring"]),
		Complications:            llm.Strings(fields["complications"]),
		CommonErrors:             llm.Strings(fields["commonErrors"]),
		Documentation:            llm.Strings(fields["documentation"]),
		Sources:                  llm.Strings(fields["sources"]),
		InternationalDifferences: llm.Strings(fields["internationalDifferences"]),
	}
	if p.empty() {
		return Procedure{}, &llm.FormatError{Stage: llm.StageContent, Raw: content, Err: errors.New("no procedure sections")}
	}
	return p, nil
}

// Service answers tutor requests.
type Service struct {
	store                Store
	client               llm.Client
	cacheTTL             time.Duration
	askTemperature       float32
	procedureTemperature float32
	now                  func() time.Time
	log                  logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithCacheTTL sets how long cached answers are served.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) { s.cacheTTL = d }
}

// WithTemperatures sets the sampling temperatures of ask and procedure calls.
func WithTemperatures(ask, procedure float32) Option {
	return func(s *Service) {
		s.askTemperature = ask
		s.procedureTemperature = procedure
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(st Store, client llm.Client, opts ...Option) *Service {
	s := &Service{
		store:                st,
		client:               client,
		cacheTTL:             30 * 24 * time.Hour,
		askTemperature:       0.2,
		procedureTemperature: 1,
		now:                  time.Now,
		log:                  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type userData struct {
	Query      string
	References []store.Document
}

// CheckQuestion reports whether query is acceptable to Ask, without any
// model call or store access.
func CheckQuestion(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrMissingQuery
	}
	if clinical.IsForbiddenQuery(query) {
		return ErrForbiddenQuery
	}
	return nil
}

// Ask answers a clinical-definition question.
func (s *Service) Ask(ctx context.Context, query string) (Answer, error) {
	query = strings.TrimSpace(query)
	if err := CheckQuestion(query); err != nil {
		return Answer{}, err
	}
	key := clinical.Normalize(query)
	category := clinical.DetectCategory(key)
	log := s.log.WithFields(logrus.Fields{"kind": kindAsk, "category": category})

	cached, err := s.store.GetCachedAnswer(ctx, kindAsk, key, s.now().Add(-s.cacheTTL))
	switch {
	case err == nil:
		log.Debug("cache hit")
		return Answer{Source: SourceCache, Category: category, Answer: cached.Response}, nil
	case !errors.Is(err, store.ErrNotFound):
		log.WithError(err).Warn("answer cache unavailable")
	}

	content, err := s.generate(ctx, log, askSystemPrompt, askUserPrompt, query, category, s.askTemperature, false)
	if err != nil {
		return Answer{}, err
	}
	s.remember(ctx, log, kindAsk, key, category, content)
	return Answer{Source: SourceLive, Category: category, Answer: content}, nil
}

// Procedure produces the structured procedure for query. An empty category
// means "general".
func (s *Service) Procedure(ctx context.Context, query, category string) (ProcedureAnswer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ProcedureAnswer{}, ErrMissingQuery
	}
	category = clinical.Normalize(category)
	if category == "" {
		category = clinical.CategoryGeneral
	}
	key := procedureKey(category, query)
	log := s.log.WithFields(logrus.Fields{"kind": kindProcedure, "category": category})

	cached, err := s.store.GetCachedAnswer(ctx, kindProcedure, key, s.now().Add(-s.cacheTTL))
	switch {
	case err == nil:
		if p, err := DecodeProcedure(cached.Response); err == nil {
			log.Debug("cache hit")
			return ProcedureAnswer{Source: SourceCache, Category: category, Procedure: p}, nil
		}
		log.Warn("discarding unreadable cached procedure")
	case !errors.Is(err, store.ErrNotFound):
		log.WithError(err).Warn("answer cache unavailable")
	}

	content, err := s.generate(ctx, log, procedureSystemPrompt, procedureUserPrompt, query, category, s.procedureTemperature, true)
	if err != nil {
		return ProcedureAnswer{}, err
	}
	p, err := DecodeProcedure(content)
	if err != nil {
		log.WithError(err).Error("invalid procedure output")
		return ProcedureAnswer{}, fmt.Errorf("procedure model: %w", err)
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		return ProcedureAnswer{}, fmt.Errorf("encode procedure: %w", err)
	}
	s.remember(ctx, log, kindProcedure, key, category, string(encoded))
	return ProcedureAnswer{Source: SourceLive, Category: category, Procedure: p}, nil
}

// procedureKey scopes cached procedures by category, since each category
// quotes its own references.
func procedureKey(category, query string) string {
	return category + "|" + clinical.Normalize(query)
}

func (s *Service) generate(ctx context.Context, log logrus.FieldLogger, system, userTmpl, query, category string,
	temperature float32, jsonMode bool) (string, error) {
	refs, err := s.store.ListDocuments(ctx, category, maxReferences)
	if err != nil {
		log.WithError(err).Warn("reference documents unavailable")
		refs = nil
	}
	prompt, err := render(userTmpl, userData{Query: query, References: refs})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	content, err := s.client.Complete(ctx, llm.Request{
		System:      system,
		User:        prompt,
		Temperature: temperature,
		JSON:        jsonMode,
	})
	if err != nil {
		log.WithError(err).Error("model call failed")
		return "", fmt.Errorf("tutor model: %w", err)
	}
	return content, nil
}

// remember stores an answer; a failed write only costs a future cache miss.
func (s *Service) remember(ctx context.Context, log logrus.FieldLogger, kind, key, category, response string) {
	err := s.store.PutCachedAnswer(ctx, store.CachedAnswer{
		Kind:      kind,
		QueryKey:  key,
		Category:  category,
		Response:  response,
		CreatedAt: s.now(),
	})
	if err != nil {
		log.WithError(err).Warn("cache answer")
	}
}

func render(text string, data any) (string, error) {
	tmpl, err := template.New("user").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
