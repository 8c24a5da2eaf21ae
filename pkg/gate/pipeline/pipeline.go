// Package pipeline runs every state-changing submission through the
// admission gates in a fixed order: input validation, identity resolution,
// challenge verification, rate-limit check, moderation, persistence, and
// only then quota recording. Each gate can short-circuit with a terminal
// decision, and nothing is persisted or recorded unless every earlier gate
// passed.
package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipshare/be/pkg/common/logger"
	"github.com/clipshare/be/pkg/gate/challenge"
	"github.com/clipshare/be/pkg/gate/identity"
	"github.com/clipshare/be/pkg/gate/moderation"
	"github.com/clipshare/be/pkg/gate/ratelimit"
	"github.com/clipshare/be/pkg/repositories/comments"
	"github.com/clipshare/be/pkg/repositories/media"
	"github.com/clipshare/be/pkg/repositories/videos"
)

// Outcome is the terminal result of a pipeline run.
type Outcome int

const (
	Admitted Outcome = iota
	RejectedInput
	RejectedChallenge
	RateLimited
	RejectedModeration
	UpstreamFailure
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case RejectedInput:
		return "rejected_input"
	case RejectedChallenge:
		return "rejected_challenge"
	case RateLimited:
		return "rate_limited"
	case RejectedModeration:
		return "rejected_moderation"
	case UpstreamFailure:
		return "upstream_failure"
	default:
		return "unknown"
	}
}

// Decision is what the request layer consumes. Message is only set for
// input rejections, where a field-specific explanation is safe to echo.
type Decision struct {
	Outcome    Outcome
	RetryAfter time.Duration
	Message    string
}

func admitted() Decision { return Decision{Outcome: Admitted} }
func rejectedInput(msg string) Decision {
	return Decision{Outcome: RejectedInput, Message: msg}
}

// Field size ceilings.
const (
	MaxCommentLength     = 1000
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
	MaxTagCount          = 20
	MaxUploadBytes       = 100 << 20
)

// Pipeline holds the gates and collaborators. All dependencies are injected
// at construction and read-only afterwards.
type Pipeline struct {
	challenges     *challenge.Service
	moderationGate *moderation.Gate
	commentLimiter *ratelimit.Limiter
	uploadLimiter  *ratelimit.Limiter
	videos         videos.Repository
	comments       comments.Repository
	media          media.Store
	persistTimeout time.Duration
	now            func() time.Time
}

type Config struct {
	Challenges     *challenge.Service
	Moderation     *moderation.Gate
	CommentLimiter *ratelimit.Limiter
	UploadLimiter  *ratelimit.Limiter
	Videos         videos.Repository
	Comments       comments.Repository
	Media          media.Store
	// PersistTimeout bounds the persistence hand-off. Defaults to 30s.
	PersistTimeout time.Duration
}

func New(cfg Config) *Pipeline {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 30 * time.Second
	}
	return &Pipeline{
		challenges:     cfg.Challenges,
		moderationGate: cfg.Moderation,
		commentLimiter: cfg.CommentLimiter,
		uploadLimiter:  cfg.UploadLimiter,
		videos:         cfg.Videos,
		comments:       cfg.Comments,
		media:          cfg.Media,
		persistTimeout: cfg.PersistTimeout,
		now:            time.Now,
	}
}

// SetClock overrides the time source. Test use only.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// CommentRequest is a comment submission after transport decoding.
type CommentRequest struct {
	TargetID        string
	Content         string
	Origin          string
	ClaimedSolution string
	ChallengeToken  string
}

// SubmitComment runs the full admission pipeline for a comment. The
// returned comment is non-nil only when the decision is Admitted.
func (p *Pipeline) SubmitComment(ctx context.Context, req CommentRequest) (Decision, *comments.Comment) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return rejectedInput("missing comment content"), nil
	}
	if len(content) > MaxCommentLength {
		return rejectedInput("comment too long (max 1000 chars)"), nil
	}

	target, err := identity.Resolve(req.TargetID)
	if err != nil {
		return rejectedInput("invalid video id"), nil
	}

	if !p.challenges.Verify(req.ClaimedSolution, req.ChallengeToken) {
		return Decision{Outcome: RejectedChallenge}, nil
	}

	limitKey := ratelimit.CommentKey(target, req.Origin)
	if dec, bad := p.checkQuota(ctx, p.commentLimiter, limitKey); bad {
		return dec, nil
	}

	if dec, bad := p.moderate(ctx, content); bad {
		return dec, nil
	}

	c := &comments.Comment{
		ID:      identity.NewOpaqueID(),
		Content: content,
		Created: p.now().UTC(),
	}
	c.Target(target)

	pctx, cancel := context.WithTimeout(ctx, p.persistTimeout)
	defer cancel()
	if err := p.comments.Insert(pctx, c); err != nil {
		logger.Error("comment insert failed: %v", err)
		return Decision{Outcome: UpstreamFailure}, nil
	}

	p.recordQuota(ctx, p.commentLimiter, limitKey)
	return admitted(), c
}

// UploadRequest is a video creation submission after transport decoding.
type UploadRequest struct {
	Title           string
	Description     string
	Tags            []string
	FileName        string
	ContentType     string
	Size            int64
	File            io.Reader
	Origin          string
	ClaimedSolution string
	ChallengeToken  string
}

// CreateVideo runs the full admission pipeline for an upload. Moderation
// covers the submission's free text (title and description). The media
// bytes are fingerprinted while they stream into the media store; the
// metadata row is written only after the bytes are durable.
func (p *Pipeline) CreateVideo(ctx context.Context, req UploadRequest) (Decision, *videos.Video) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	switch {
	case title == "":
		return rejectedInput("missing title"), nil
	case len(title) > MaxTitleLength:
		return rejectedInput("title too long (max 200 chars)"), nil
	case description == "":
		return rejectedInput("missing description"), nil
	case len(description) > MaxDescriptionLength:
		return rejectedInput("description too long (max 5000 chars)"), nil
	case len(req.Tags) > MaxTagCount:
		return rejectedInput("too many tags (max 20)"), nil
	case req.File == nil || req.Size <= 0:
		return rejectedInput("missing video file"), nil
	case req.Size > MaxUploadBytes:
		return rejectedInput("video file too large (max 100MB)"), nil
	}

	if !p.challenges.Verify(req.ClaimedSolution, req.ChallengeToken) {
		return Decision{Outcome: RejectedChallenge}, nil
	}

	limitKey := ratelimit.UploadKey(req.Origin)
	if dec, bad := p.checkQuota(ctx, p.uploadLimiter, limitKey); bad {
		return dec, nil
	}

	if dec, bad := p.moderate(ctx, title+"\n"+description); bad {
		return dec, nil
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	mediaKey := "videos/" + uuid.NewString() + mediaExt(req.FileName)

	hasher := md5.New()
	pctx, cancel := context.WithTimeout(ctx, p.persistTimeout)
	defer cancel()

	url, err := p.media.Put(pctx, mediaKey, contentType, io.TeeReader(req.File, hasher))
	if err != nil {
		logger.Error("media store put failed: %v", err)
		return Decision{Outcome: UpstreamFailure}, nil
	}

	v := &videos.Video{
		ID:          identity.NewOpaqueID(),
		Title:       title,
		Description: description,
		Tags:        normalizeTags(req.Tags),
		Fingerprint: hex.EncodeToString(hasher.Sum(nil)),
		URL:         url,
		MediaKey:    mediaKey,
		ContentType: contentType,
		Size:        req.Size,
		Uploaded:    p.now().UTC(),
		ViewCount:   0,
		Likes:       0,
	}
	if err := p.videos.Insert(pctx, v); err != nil {
		logger.Error("video insert failed: %v", err)
		if derr := p.media.Delete(ctx, mediaKey); derr != nil {
			logger.Warn("orphaned media object %s: %v", mediaKey, derr)
		}
		return Decision{Outcome: UpstreamFailure}, nil
	}

	p.recordQuota(ctx, p.uploadLimiter, limitKey)
	return admitted(), v
}

// checkQuota is the advisory pre-persistence read. A store failure blocks
// the submission; an unverifiable quota is never treated as available.
func (p *Pipeline) checkQuota(ctx context.Context, lim *ratelimit.Limiter, key string) (Decision, bool) {
	dec, err := lim.Check(ctx, key)
	if err != nil {
		logger.Error("rate limit check failed for %s: %v", key, err)
		return Decision{Outcome: UpstreamFailure}, true
	}
	if !dec.Allowed {
		return Decision{Outcome: RateLimited, RetryAfter: dec.RetryAfter}, true
	}
	return Decision{}, false
}

// recordQuota is the atomic append, run only after persistence succeeded.
// The user-visible outcome is already decided at this point: a
// denial or failure here means quota drift, which is logged for operator
// reconciliation rather than surfaced to the client.
func (p *Pipeline) recordQuota(ctx context.Context, lim *ratelimit.Limiter, key string) {
	dec, err := lim.Record(ctx, key)
	if err != nil {
		logger.Warn("quota drift: usage record failed for %s: %v", key, err)
		return
	}
	if !dec.Allowed {
		logger.Warn("quota drift: concurrent submissions filled window for %s before record", key)
	}
}

func (p *Pipeline) moderate(ctx context.Context, text string) (Decision, bool) {
	res, err := p.moderationGate.Review(ctx, text)
	if err != nil {
		logger.Error("moderation unavailable: %v", err)
		return Decision{Outcome: UpstreamFailure}, true
	}
	if res.Flagged {
		// Categories stay server-side; clients only ever see the generic
		// rejection.
		logger.Info("submission flagged by moderation: %s", strings.Join(res.Categories, ","))
		return Decision{Outcome: RejectedModeration}, true
	}
	return Decision{}, false
}

var extRe = regexp.MustCompile(`^\.[A-Za-z0-9]{1,5}$`)

func mediaExt(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if !extRe.MatchString(ext) {
		return ".bin"
	}
	return ext
}

func normalizeTags(tags []string) []string {
	out := []string{}
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
