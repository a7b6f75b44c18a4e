package usecase

import (
	"time"

	"github.com/m-mizutani/gollem"

	"github.com/intake-lab/prosecoach/pkg/domain/interfaces"
	"github.com/intake-lab/prosecoach/pkg/domain/model/config"
)

const defaultLLMTimeout = 60 * time.Second

type UseCases struct {
	repo       interfaces.Repository
	cfg        *config.IntakeConfig
	llmClient  gollem.LLMClient
	notifier   interfaces.Notifier
	llmTimeout time.Duration
	nowFn      func() time.Time

	Session *SessionUseCase
	Coach   *CoachUseCase
	Output  *OutputUseCase
}

type Option func(*UseCases)

// WithLLMClient sets the generative collaborator. Without it every turn uses
// the deterministic fallback.
func WithLLMClient(client gollem.LLMClient) Option {
	return func(uc *UseCases) {
		uc.llmClient = client
	}
}

// WithNotifier sets the urgent-safety operator notifier
func WithNotifier(notifier interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

// WithIntakeConfig overrides the default intake configuration
func WithIntakeConfig(cfg *config.IntakeConfig) Option {
	return func(uc *UseCases) {
		if cfg != nil {
			uc.cfg = cfg
		}
	}
}

// WithLLMTimeout bounds each collaborator call. An unbounded wait is never
// acceptable; expiry routes to the deterministic fallback.
func WithLLMTimeout(timeout time.Duration) Option {
	return func(uc *UseCases) {
		if timeout > 0 {
			uc.llmTimeout = timeout
		}
	}
}

// WithClock replaces the time source, for tests
func WithClock(nowFn func() time.Time) Option {
	return func(uc *UseCases) {
		uc.nowFn = nowFn
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		cfg:        config.Default(),
		llmTimeout: defaultLLMTimeout,
		nowFn:      time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}
	uc.cfg.Normalize()

	uc.Session = &SessionUseCase{repo: repo, cfg: uc.cfg, nowFn: uc.nowFn}
	uc.Coach = &CoachUseCase{
		repo:     repo,
		cfg:      uc.cfg,
		llm:      uc.llmClient,
		notifier: uc.notifier,
		timeout:  uc.llmTimeout,
		nowFn:    uc.nowFn,
	}
	uc.Output = &OutputUseCase{
		repo:    repo,
		cfg:     uc.cfg,
		llm:     uc.llmClient,
		timeout: uc.llmTimeout,
		nowFn:   uc.nowFn,
	}

	return uc
}
