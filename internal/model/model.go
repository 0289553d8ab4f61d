package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// User struct
type User struct {
	gorm.Model
	Email        *string `gorm:"uniqueIndex" json:"email"`
	Phone        *string `gorm:"uniqueIndex" json:"phone"`
	Password     string  `gorm:"not null" json:"-"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	UserRole     string  `json:"userRole"`
	ProfileImage string  `json:"profileImage"`
	IsGuest      bool    `gorm:"not null;default:false" json:"isGuest"`
}

// BabyProfile struct
type BabyProfile struct {
	gorm.Model
	UserID      uint      `gorm:"not null;index" json:"userId"`
	Name        string    `gorm:"not null" json:"name"`
	DateOfBirth time.Time `gorm:"not null" json:"dateOfBirth"`
	Gender      string    `gorm:"not null" json:"gender"`
	Photo       string    `json:"photo"`
}

// Recording pairs an uploaded clip's metadata with its classification result
// and caregiver feedback. A row is only ever created together with its
// analysis result; ratings are the only mutation afterwards.
type Recording struct {
	gorm.Model
	UserID         uint           `gorm:"not null;index" json:"userId"`
	BabyProfileID  *uint          `gorm:"index" json:"babyProfileId"`
	Filename       string         `gorm:"not null" json:"filename"`
	Duration       *int           `json:"duration"`
	AnalysisResult AnalysisResult `gorm:"type:jsonb" json:"analysisResult"`
	RateState      *string        `json:"rateState"`
	RateReason     string         `json:"rateReason"`
	RecordedAt     time.Time      `gorm:"not null;index" json:"recordedAt"`
}

// CryReasonDescription is read-only reference data seeded at startup,
// keyed by the classifier label.
type CryReasonDescription struct {
	gorm.Model
	ClassName       string     `gorm:"uniqueIndex;not null" json:"className"`
	Title           string     `gorm:"not null" json:"title"`
	Description     string     `json:"description"`
	Recommendations StringList `gorm:"type:jsonb" json:"recommendations"`
}

// LegalDocument struct
type LegalDocument struct {
	gorm.Model
	Type    string `gorm:"not null;index:idx_legal_type_locale,unique" json:"type"`
	Locale  string `gorm:"not null;index:idx_legal_type_locale,unique" json:"locale"`
	Title   string `json:"title"`
	Content string `gorm:"not null" json:"content"`
}

// Rate states accepted by the rating endpoint.
const (
	RateGood = "good"
	RateBad  = "bad"
)

// UnknownClass is the label used when the classifier could not produce one.
const UnknownClass = "unknown"

// CanonicalClasses is the fixed set of cry-reason labels the classifier can
// emit. History charts always show every entry, including zero counts.
var CanonicalClasses = []string{
	"hunger_milk",
	"hunger_food",
	"sleepiness",
	"lack_of_security",
	"diaper_urinate",
	"diaper_shit",
	"internal_pain",
	"external_pain",
	"uncomfortable",
	UnknownClass,
}

// ClassifierResult is the raw payload returned by the external cry
// classifier, kept verbatim inside the analysis result.
type ClassifierResult struct {
	Class string             `json:"class"`
	Probs map[string]float64 `json:"probs"`
	Show  bool               `json:"show"`
}

// AnalysisResult is the normalized classification outcome stored with a
// recording. On classifier failure CryType is "unknown", Confidence is 0 and
// Recommendations carries generic soothing advice.
type AnalysisResult struct {
	CryType         string            `json:"cryType"`
	Confidence      float64           `json:"confidence"`
	RawResult       *ClassifierResult `json:"rawResult,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// Value implements driver.Valuer so the result is stored as a jsonb column.
func (r AnalysisResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner.
func (r *AnalysisResult) Scan(value any) error {
	if value == nil {
		*r = AnalysisResult{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("cannot scan %T into AnalysisResult", value)
	}
}

// StringList is an ordered list of strings stored as a jsonb column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(l))
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("cannot scan value into StringList")
	}
}
