package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

const maxExcerptRunes = 100

// ContentRef identifies reportable community content. The set of implementations is closed.
type ContentRef interface {
	Type() string
	Ref() docstore.Ref
	// excerpt picks the text shown to moderators.
	excerpt(data map[string]any) string
}

// ChirpContent is a chirp addressed by its id.
type ChirpContent struct{ ChirpID string }

// ReplyContent is a reply of a chirp.
type ReplyContent struct{ ChirpID, ReplyID string }

// FeedPostContent is a feed post addressed by its id.
type FeedPostContent struct{ PostID string }

// CommentContent is a comment of a feed post.
type CommentContent struct{ PostID, CommentID string }

func (ChirpContent) Type() string    { return "chirp" }
func (ReplyContent) Type() string    { return "reply" }
func (FeedPostContent) Type() string { return "feedPost" }
func (CommentContent) Type() string  { return "comment" }

func (c ChirpContent) Ref() docstore.Ref {
	return repositories.ChirpRef(c.ChirpID)
}

func (c ReplyContent) Ref() docstore.Ref {
	return repositories.ReplyRef(c.ChirpID, c.ReplyID)
}

func (c FeedPostContent) Ref() docstore.Ref {
	return repositories.FeedPostRef(c.PostID)
}

func (c CommentContent) Ref() docstore.Ref {
	return repositories.CommentRef(c.PostID, c.CommentID)
}

func (ChirpContent) excerpt(data map[string]any) string {
	return textField(data, "title")
}

func (ReplyContent) excerpt(data map[string]any) string {
	return textField(data, "body")
}

func (FeedPostContent) excerpt(data map[string]any) string {
	return textField(data, "body")
}

func (CommentContent) excerpt(data map[string]any) string {
	return textField(data, "body")
}

func textField(data map[string]any, field string) string {
	s, _ := data[field].(string)
	return truncateRunes(s, maxExcerptRunes)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// ParseContentRef builds the reference named by a report request. Chirps and feed posts are
// addressed by bare ids; replies and comments by their full document paths.
func ParseContentRef(contentType, contentID string) (ContentRef, error) {
	invalid := domainerrors.InvalidArgument("Invalid content reference.")
	switch contentType {
	case "chirp":
		if err := requireID(contentID, "Invalid content reference."); err != nil {
			return nil, err
		}
		return ChirpContent{ChirpID: contentID}, nil
	case "feedPost":
		if err := requireID(contentID, "Invalid content reference."); err != nil {
			return nil, err
		}
		return FeedPostContent{PostID: contentID}, nil
	case "reply":
		parent, child, ok := splitNested(contentID, repositories.ChirpsCollection, repositories.RepliesCollection)
		if !ok {
			return nil, invalid
		}
		return ReplyContent{ChirpID: parent, ReplyID: child}, nil
	case "comment":
		parent, child, ok := splitNested(contentID, repositories.FeedPostsCollection, repositories.CommentsCollection)
		if !ok {
			return nil, invalid
		}
		return CommentContent{PostID: parent, CommentID: child}, nil
	}
	return nil, domainerrors.InvalidArgument("Unknown content type.")
}

// splitNested matches "<top>/<parent>/<sub>/<child>".
func splitNested(path, top, sub string) (string, string, bool) {
	ref, err := docstore.ParseRef(strings.TrimSpace(path))
	if err != nil {
		return "", "", false
	}
	seg := ref.Segments()
	if len(seg) != 4 || seg[0] != top || seg[2] != sub {
		return "", "", false
	}
	return seg[1], seg[3], true
}

// ReportService files content reports for review.
type ReportService struct {
	store docstore.Store
	log   logrus.FieldLogger
}

func NewReportService(store docstore.Store, log logrus.FieldLogger) *ReportService {
	return &ReportService{store: store, log: log}
}

// ReportContent snapshots the reported content into a pending report.
func (s *ReportService) ReportContent(ctx context.Context, caller Caller, req models.ReportContentRequest) (*CreatedResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, domainerrors.InvalidArgument("A reason is required.")
	}
	content, err := ParseContentRef(req.ContentType, req.ContentID)
	if err != nil {
		return nil, err
	}

	snap, err := s.store.Get(ctx, content.Ref())
	if err != nil {
		return nil, storeError(err, "get reported content")
	}
	if !snap.Exists() {
		return nil, domainerrors.NotFound("The reported content no longer exists.")
	}

	ref := docstore.Collection(repositories.ReportsCollection).NewDoc()
	err = s.store.Create(ctx, ref, docstore.Fields{
		"reporterId":      caller.UID,
		"reason":          reason,
		"contentType":     content.Type(),
		"contentId":       content.Ref().ID(),
		"contentPath":     string(content.Ref()),
		"contentAuthorId": snap.StringField("authorId"),
		"contentExcerpt":  content.excerpt(snap.Data()),
		"status":          models.ReportPendingReview,
		"createdAt":       docstore.ServerTimestamp,
	})
	if err != nil {
		return nil, storeError(err, "create report")
	}

	s.log.WithFields(logrus.Fields{
		"report_id":    ref.ID(),
		"content_type": content.Type(),
		"content_path": string(content.Ref()),
	}).Info("Content reported")
	return &CreatedResult{Success: true, ID: ref.ID()}, nil
}
