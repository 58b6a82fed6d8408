package repositories

import "github.com/abhijit-arora/cockatiel-companion/pkg/docstore"

// Collection names.
const (
	UsersCollection          = "users"
	AviariesCollection       = "aviaries"
	CaregiversCollection     = "caregivers"
	BirdsCollection          = "birds"
	InvitationsCollection    = "invitations"
	ChirpsCollection         = "community_chirps"
	RepliesCollection        = "replies"
	FollowersCollection      = "followers"
	HelpfulMarkersCollection = "helpfulMarkers"
	FeedPostsCollection      = "community_feed_posts"
	CommentsCollection       = "comments"
	LikesCollection          = "likes"
	ReportsCollection        = "reports"
	NotificationsCollection  = "notifications"
	ImageLabelsCollection    = "imageLabels"
	AviaryNamesCollection    = "aviaryNames"
)

func UserRef(uid string) docstore.Ref {
	return docstore.Collection(UsersCollection).Doc(uid)
}

func AviaryRef(id string) docstore.Ref {
	return docstore.Collection(AviariesCollection).Doc(id)
}

func CaregiverRef(aviaryID, uid string) docstore.Ref {
	return AviaryRef(aviaryID).Collection(CaregiversCollection).Doc(uid)
}

// AviaryNameRef is the claim document reserving name for one aviary.
func AviaryNameRef(name string) docstore.Ref {
	return docstore.Collection(AviaryNamesCollection).Doc(name)
}

func InvitationRef(id string) docstore.Ref {
	return docstore.Collection(InvitationsCollection).Doc(id)
}

func ChirpRef(id string) docstore.Ref {
	return docstore.Collection(ChirpsCollection).Doc(id)
}

func ReplyRef(chirpID, replyID string) docstore.Ref {
	return ChirpRef(chirpID).Collection(RepliesCollection).Doc(replyID)
}

func FeedPostRef(id string) docstore.Ref {
	return docstore.Collection(FeedPostsCollection).Doc(id)
}

func CommentRef(postID, commentID string) docstore.Ref {
	return FeedPostRef(postID).Collection(CommentsCollection).Doc(commentID)
}

func NotificationRef(id string) docstore.Ref {
	return docstore.Collection(NotificationsCollection).Doc(id)
}

func ImageLabelRef(id string) docstore.Ref {
	return docstore.Collection(ImageLabelsCollection).Doc(id)
}
