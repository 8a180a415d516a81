package domain

import "time"

type SocialLinks struct {
	Twitter  string `json:"twitter" bson:"twitter"`
	LinkedIn string `json:"linkedin" bson:"linkedin"`
	GitHub   string `json:"github" bson:"github"`
}

type Experience struct {
	ID          string `json:"id" bson:"id"`
	Company     string `json:"company" bson:"company"`
	Position    string `json:"position" bson:"position"`
	Location    string `json:"location" bson:"location"`
	StartDate   string `json:"start_date" bson:"startDate"`
	EndDate     string `json:"end_date" bson:"endDate"`
	Description string `json:"description" bson:"description"`
	IsCurrent   bool   `json:"is_current" bson:"isCurrent"`
}

type Certification struct {
	ID            string `json:"id" bson:"id"`
	Name          string `json:"name" bson:"name"`
	Issuer        string `json:"issuer" bson:"issuer"`
	IssueDate     string `json:"issue_date" bson:"issueDate"`
	CredentialID  string `json:"credential_id" bson:"credentialId"`
	CredentialURL string `json:"credential_url" bson:"credentialUrl"`
	FileURL       string `json:"file_url" bson:"fileUrl"`
	FileType      string `json:"file_type" bson:"fileType"`
}

type ProjectFile struct {
	URL  string `json:"url" bson:"url"`
	Type string `json:"type" bson:"type"`
	Name string `json:"name" bson:"name"`
}

type Project struct {
	ID           string        `json:"id" bson:"id"`
	Title        string        `json:"title" bson:"title"`
	Description  string        `json:"description" bson:"description"`
	StartDate    string        `json:"start_date" bson:"startDate"`
	EndDate      string        `json:"end_date" bson:"endDate"`
	Technologies []string      `json:"technologies" bson:"technologies"`
	ProjectURL   string        `json:"project_url" bson:"projectUrl"`
	Files        []ProjectFile `json:"files" bson:"files"`
}

// PublicProfile is the directory entry other users see. Its ID equals the
// owning User's ID.
type PublicProfile struct {
	ID             string          `json:"id" bson:"_id"`
	DisplayName    string          `json:"display_name" bson:"displayName"`
	Username       string          `json:"username" bson:"username"`
	Bio            string          `json:"bio" bson:"bio"`
	Skills         []string        `json:"skills" bson:"skills"`
	Achievements   []string        `json:"achievements" bson:"achievements"`
	Experience     []Experience    `json:"experience" bson:"experience"`
	Certifications []Certification `json:"certifications" bson:"certifications"`
	Projects       []Project       `json:"projects" bson:"projects"`
	Location       string          `json:"location" bson:"location"`
	Website        string          `json:"website" bson:"website"`
	SocialLinks    SocialLinks     `json:"social_links" bson:"socialLinks"`
	ProfileImage   string          `json:"profile_image" bson:"profileImage"`
	IsPublic       bool            `json:"is_public" bson:"isPublic"`
	UpdatedAt      time.Time       `json:"updated_at" bson:"updatedAt"`
}

// NewPublicProfile returns a profile with empty collections, visible by default.
func NewPublicProfile(userID, displayName, username string) *PublicProfile {
	return &PublicProfile{
		ID:             userID,
		DisplayName:    displayName,
		Username:       username,
		Skills:         []string{},
		Achievements:   []string{},
		Experience:     []Experience{},
		Certifications: []Certification{},
		Projects:       []Project{},
		IsPublic:       true,
	}
}

// Details is the snapshot denormalized onto conversations.
func (p *PublicProfile) Details() ParticipantDetails {
	return ParticipantDetails{
		DisplayName:  p.DisplayName,
		ProfileImage: p.ProfileImage,
		Username:     p.Username,
	}
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName    *string          `json:"display_name,omitempty"`
	Username       *string          `json:"username,omitempty"`
	Bio            *string          `json:"bio,omitempty"`
	Skills         *[]string        `json:"skills,omitempty"`
	Achievements   *[]string        `json:"achievements,omitempty"`
	Experience     *[]Experience    `json:"experience,omitempty"`
	Certifications *[]Certification `json:"certifications,omitempty"`
	Projects       *[]Project       `json:"projects,omitempty"`
	Location       *string          `json:"location,omitempty"`
	Website        *string          `json:"website,omitempty"`
	SocialLinks    *SocialLinks     `json:"social_links,omitempty"`
	ProfileImage   *string          `json:"profile_image,omitempty"`
	IsPublic       *bool            `json:"is_public,omitempty"`
}

// Apply copies every set field of u onto p.
func (u ProfileUpdate) Apply(p *PublicProfile) {
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.Username != nil {
		p.Username = *u.Username
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Skills != nil {
		p.Skills = *u.Skills
	}
	if u.Achievements != nil {
		p.Achievements = *u.Achievements
	}
	if u.Experience != nil {
		p.Experience = *u.Experience
	}
	if u.Certifications != nil {
		p.Certifications = *u.Certifications
	}
	if u.Projects != nil {
		p.Projects = *u.Projects
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.Website != nil {
		p.Website = *u.Website
	}
	if u.SocialLinks != nil {
		p.SocialLinks = *u.SocialLinks
	}
	if u.ProfileImage != nil {
		p.ProfileImage = *u.ProfileImage
	}
	if u.IsPublic != nil {
		p.IsPublic = *u.IsPublic
	}
}
