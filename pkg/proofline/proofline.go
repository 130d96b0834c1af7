// Package proofline is the grammar checker facade. It splits a document
// into sentences, tokenizes, tags and disambiguates each one, and runs the
// selected rules over the result.
package proofline

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cognicore/proofline/internal/markup"
	"github.com/cognicore/proofline/pkg/proofline/analysis"
	"github.com/cognicore/proofline/pkg/proofline/config"
	"github.com/cognicore/proofline/pkg/proofline/logging"
	"github.com/cognicore/proofline/pkg/proofline/rules"
)

// Version is the software version reported by the commands.
var Version = "dev"

// Resources loads the components of one language at most once and shares
// them between checkers.
type Resources struct {
	loader *config.Loader

	once sync.Once
	comp *config.Components
	err  error
}

// NewResources returns a lazy registry for the resources named by l.
func NewResources(l *config.Loader) *Resources {
	return &Resources{loader: l}
}

// Components loads the resources on first use. Later calls return the same
// components, or the same error.
func (r *Resources) Components(ctx context.Context) (*config.Components, error) {
	r.once.Do(func() {
		r.comp, r.err = r.loader.Load(ctx)
	})
	return r.comp, r.err
}

// Close releases the loaded components.
func (r *Resources) Close() error {
	if r.comp == nil {
		return nil
	}
	return r.comp.Close()
}

// Options configures a Checker.
type Options struct {
	Components *config.Components
	// Workers bounds the sentences analyzed in parallel. Zero uses
	// GOMAXPROCS.
	Workers       int
	EnabledRules  []string
	DisabledRules []string
}

// Checker checks documents in one language. It is safe for concurrent use.
type Checker struct {
	comp      *config.Components
	active    []rules.Rule
	stateless []rules.Rule
	stateful  []rules.StatefulRule
	workers   int
	logger    zerolog.Logger
}

// New creates a checker over loaded components.
func New(opts Options) (*Checker, error) {
	if opts.Components == nil || opts.Components.Catalog == nil {
		return nil, fmt.Errorf("proofline: components not loaded")
	}
	c := &Checker{
		comp:    opts.Components,
		workers: opts.Workers,
		logger:  logging.GetLogger("checker"),
	}
	if c.workers <= 0 {
		c.workers = runtime.GOMAXPROCS(0)
	}
	c.active = opts.Components.Catalog.Rules.Select(opts.EnabledRules, opts.DisabledRules)
	for _, r := range c.active {
		if sr, ok := r.(rules.StatefulRule); ok {
			c.stateful = append(c.stateful, sr)
		} else {
			c.stateless = append(c.stateless, r)
		}
	}
	return c, nil
}

// NewFromSettings loads the resources named in s and creates a checker.
// The caller closes the returned Resources.
func NewFromSettings(ctx context.Context, s *config.Settings) (*Checker, *Resources, error) {
	res := NewResources(config.LoaderFromSettings(s))
	comp, err := res.Components(ctx)
	if err != nil {
		return nil, nil, err
	}
	c, err := New(Options{
		Components:    comp,
		Workers:       s.Workers,
		EnabledRules:  s.EnabledRules,
		DisabledRules: s.DisabledRules,
	})
	if err != nil {
		_ = res.Close()
		return nil, nil, err
	}
	return c, res, nil
}

// Components returns the checker's components.
func (c *Checker) Components() *config.Components { return c.comp }

// Rules returns the active rules in catalog order.
func (c *Checker) Rules() []rules.Rule { return c.active }

// Analyze splits text into sentences and returns them tagged and
// disambiguated, with offsets relative to text.
func (c *Checker) Analyze(ctx context.Context, text string) ([]*analysis.Sentence, error) {
	results, err := c.run(ctx, text, false)
	out := make([]*analysis.Sentence, 0, len(results))
	for _, r := range results {
		if r.sentence != nil {
			out = append(out, r.sentence)
		}
	}
	return out, err
}

// Check returns the errors found in text ordered by offset. Offsets are
// byte offsets into text. When ctx is canceled the matches of the
// sentences finished so far are returned together with ctx.Err().
func (c *Checker) Check(ctx context.Context, text string) ([]rules.RuleMatch, error) {
	done := logging.LogOperationStart(c.logger, "check")
	results, err := c.run(ctx, text, true)

	var matches []rules.RuleMatch
	for _, r := range results {
		matches = append(matches, r.matches...)
	}
	// Stateful rules see the sentences in document order with one state
	// per document.
	st := rules.MapState{}
	for _, r := range results {
		for _, rule := range c.stateful {
			matches = append(matches, c.matchStateful(rule, r.sentence, st)...)
		}
	}
	rules.SortMatches(matches)
	done(err)
	return matches, err
}

// CheckMarkup checks the text content of an HTML document. Match offsets
// point into the markup; the extracted text is returned alongside.
func (c *Checker) CheckMarkup(ctx context.Context, r io.Reader) ([]rules.RuleMatch, markup.Text, error) {
	text, err := markup.Extract(r)
	if err != nil {
		return nil, markup.Text{}, fmt.Errorf("extract markup: %w", err)
	}
	matches, err := c.Check(ctx, text.Plain)
	for i := range matches {
		matches[i].Start, matches[i].End = text.MapSpan(matches[i].Start, matches[i].End)
	}
	return matches, text, err
}

type sentenceResult struct {
	sentence *analysis.Sentence
	matches  []rules.RuleMatch
}

// run analyzes every sentence of text on the worker pool and, with match
// set, applies the stateless rules. Results keep document order.
func (c *Checker) run(ctx context.Context, text string, match bool) ([]sentenceResult, error) {
	parts := c.comp.Sentences.Split(text)
	bases := make([]int, len(parts))
	offset := 0
	for i, p := range parts {
		bases[i] = offset
		offset += len(p)
	}

	results := make([]sentenceResult, len(parts))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(c.workers, len(parts)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				s := c.analyze(parts[i], bases[i])
				results[i].sentence = s
				if match {
					for _, rule := range c.stateless {
						results[i].matches = append(results[i].matches, c.match(rule, s)...)
					}
				}
			}
		}()
	}

	var err error
feed:
	for i := range parts {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		// keep the finished prefix only
		n := 0
		for n < len(results) && results[n].sentence != nil {
			n++
		}
		return results[:n], err
	}
	return results, nil
}

// analyze tokenizes, tags and disambiguates one sentence starting at base.
func (c *Checker) analyze(text string, base int) *analysis.Sentence {
	words := c.comp.Words.Tokenize(text)
	var readings [][]analysis.Reading
	if c.comp.Tagger != nil {
		var err error
		readings, err = c.comp.Tagger.Tag(words)
		if err != nil {
			c.logger.Warn().Err(err).Int("offset", base).Msg("tagging failed, using unknown readings")
			readings = nil
		} else if len(readings) != len(words) {
			c.logger.Warn().Int("tokens", len(words)).Int("readings", len(readings)).Msg("tagger returned a wrong number of reading sets")
			readings = nil
		}
	}
	s := analysis.Build(text, base, words, readings)
	return c.comp.Disambiguator.Disambiguate(s)
}

func (c *Checker) match(rule rules.Rule, s *analysis.Sentence) (out []rules.RuleMatch) {
	defer c.recoverRule(rule, s, &out)
	return rule.Match(s)
}

func (c *Checker) matchStateful(rule rules.StatefulRule, s *analysis.Sentence, st rules.State) (out []rules.RuleMatch) {
	defer c.recoverRule(rule, s, &out)
	return rule.MatchWithState(s, st)
}

// recoverRule drops the matches of a panicking rule for one sentence.
func (c *Checker) recoverRule(rule rules.Rule, s *analysis.Sentence, out *[]rules.RuleMatch) {
	if p := recover(); p != nil {
		c.logger.Error().
			Str("rule", rule.ID()).
			Int("offset", s.Base()).
			Interface("panic", p).
			Msg("rule failed")
		*out = nil
	}
}
