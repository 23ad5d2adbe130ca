package database

import "time"

// AssetStatus is the moderation lifecycle state of an asset.
type AssetStatus string

const (
	// StatusProcessing marks an upload awaiting admin approval.
	StatusProcessing AssetStatus = "processing"
	// StatusPublished marks an asset visible to everyone.
	StatusPublished AssetStatus = "published"
	// StatusRejected marks an asset refused by an admin.
	StatusRejected AssetStatus = "rejected"
)

// User is an account created from externally verified identity claims.
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	Provider   string    `json:"provider"`
	ProviderID string    `json:"-"`
	IsAdmin    bool      `json:"isAdmin"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Asset is one uploaded media item and its metadata record.
type Asset struct {
	ID           int64       `json:"id"`
	UserID       int64       `json:"userId"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	StoredName   string      `json:"-"`
	OriginalName string      `json:"originalName,omitempty"`
	Size         int64       `json:"size"`
	Duration     float64     `json:"duration"`
	Width        int         `json:"width"`
	Height       int         `json:"height"`
	ContentType  string      `json:"contentType"`
	ThumbName    string      `json:"-"`
	ThumbType    string      `json:"thumbType"`
	Tags         string      `json:"tags,omitempty"`
	Status       AssetStatus `json:"status"`
	IsFeatured   bool        `json:"isFeatured"`
	Views        int64       `json:"views"`
	Likes        int64       `json:"likes"`
	CreatedAt    time.Time   `json:"createdAt"`

	// Joined fields, populated by listing queries.
	OwnerName   string `json:"ownerName,omitempty"`
	OwnerAvatar string `json:"ownerAvatar,omitempty"`
	IsLiked     bool   `json:"isLiked,omitempty"`
}

// Comment is a viewer comment on an asset.
type Comment struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	AssetID    int64     `json:"assetId"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	UserName   string    `json:"userName,omitempty"`
	UserAvatar string    `json:"userAvatar,omitempty"`
}

// Session is an authenticated browser session.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// HubStats is the aggregate counters served by /api/stats.
type HubStats struct {
	PublishedAssets   int   `json:"publishedAssets"`
	ProcessingAssets  int   `json:"processingAssets"`
	Users             int   `json:"users"`
	TotalViews        int64 `json:"totalViews"`
	ActiveConnections int   `json:"activeConnections"`
}

// ListOptions filters the published-asset listing.
type ListOptions struct {
	Tag    string
	Search string
	Limit  int
}
