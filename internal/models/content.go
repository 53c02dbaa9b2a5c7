package models

import "time"

// BlogStatus is the publication state of a blog post.
type BlogStatus string

// Blog post statuses.
const (
	BlogStatusDraft     BlogStatus = "DRAFT"
	BlogStatusPublished BlogStatus = "PUBLISHED"
)

// BlogPost is an editorial article with its own SEO fields.
type BlogPost struct {
	ID              string     `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Slug            string     `db:"slug" json:"slug"`
	Excerpt         string     `db:"excerpt" json:"excerpt"`
	Body            string     `db:"body" json:"body"`
	Tags            string     `db:"tags" json:"tags"`
	AuthorID        string     `db:"author_id" json:"author_id"`
	Status          BlogStatus `db:"status" json:"status"`
	MetaTitle       string     `db:"meta_title" json:"meta_title"`
	MetaDescription string     `db:"meta_description" json:"meta_description"`
	PublishedAt     *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// BlogFilter provides filters for listing blog posts.
type BlogFilter struct {
	Status    BlogStatus
	Tag       string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Review is a student review of a course, subject to moderation.
type Review struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment"`
	IsApproved bool      `db:"is_approved" json:"is_approved"`
	IsFeatured bool      `db:"is_featured" json:"is_featured"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ReviewFilter provides filters for listing reviews.
type ReviewFilter struct {
	CourseID   string
	IsApproved *bool
	IsFeatured *bool
	Page       int
	PageSize   int
}

// NewsletterSubscriber is one address on the mailing list.
type NewsletterSubscriber struct {
	ID             string     `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	Subscribed     bool       `db:"subscribed" json:"subscribed"`
	UnsubscribedAt *time.Time `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// NewsletterIssueStatus tracks dispatch progress of an issue.
type NewsletterIssueStatus string

// Newsletter issue statuses.
const (
	NewsletterIssueDraft  NewsletterIssueStatus = "DRAFT"
	NewsletterIssueQueued NewsletterIssueStatus = "QUEUED"
	NewsletterIssueSent   NewsletterIssueStatus = "SENT"
	NewsletterIssueFailed NewsletterIssueStatus = "FAILED"
)

// NewsletterIssue is one outbound newsletter, dispatched via the job queue.
type NewsletterIssue struct {
	ID        string                `db:"id" json:"id"`
	Subject   string                `db:"subject" json:"subject"`
	Body      string                `db:"body" json:"body"`
	Status    NewsletterIssueStatus `db:"status" json:"status"`
	SentCount int                   `db:"sent_count" json:"sent_count"`
	SentAt    *time.Time            `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time             `db:"created_at" json:"created_at"`
}

// ContactStatus tracks handling of an inbound contact message.
type ContactStatus string

// Contact message statuses.
const (
	ContactStatusNew     ContactStatus = "NEW"
	ContactStatusRead    ContactStatus = "READ"
	ContactStatusReplied ContactStatus = "REPLIED"
)

// ContactMessage is an inbound message from the public contact form.
type ContactMessage struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Email     string        `db:"email" json:"email"`
	Subject   string        `db:"subject" json:"subject"`
	Message   string        `db:"message" json:"message"`
	Status    ContactStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// PageSEO holds per-path SEO metadata managed by marketing.
type PageSEO struct {
	ID              string    `db:"id" json:"id"`
	Path            string    `db:"path" json:"path"`
	Title           string    `db:"title" json:"title"`
	Description     string    `db:"description" json:"description"`
	Keywords        string    `db:"keywords" json:"keywords"`
	OGTitle         string    `db:"og_title" json:"og_title"`
	OGDescription   string    `db:"og_description" json:"og_description"`
	OGImageURL      string    `db:"og_image_url" json:"og_image_url"`
	CanonicalURL    string    `db:"canonical_url" json:"canonical_url"`
	RobotsDirective string    `db:"robots_directive" json:"robots_directive"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
