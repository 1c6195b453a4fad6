package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONB custom type for JSON fields
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONB)
		return nil
	}
	return json.Unmarshal(asBytes(value), j)
}

// StringList is a JSON-encoded list of strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return json.Unmarshal(asBytes(value), l)
}

// AnswerItem is one stored answer-key row. Legacy rows carry
// CorrectOptions instead of CorrectAnswerID.
type AnswerItem struct {
	QuestionID      string   `json:"questionId"`
	CorrectAnswerID string   `json:"correctAnswerId,omitempty"`
	CorrectOptions  []string `json:"correctOptions,omitempty"`
}

// Accepted returns every option id that scores as correct.
func (a AnswerItem) Accepted() []string {
	if a.CorrectAnswerID != "" {
		return []string{a.CorrectAnswerID}
	}
	return a.CorrectOptions
}

type AnswerList []AnswerItem

func (l AnswerList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]AnswerItem(l))
	return string(b), err
}

func (l *AnswerList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return json.Unmarshal(asBytes(value), l)
}

func asBytes(value interface{}) []byte {
	switch v := value.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	return nil
}

// Base model with UUID
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// ExamScope is embedded by every record keyed on one exam sitting.
// SubjectCombination is empty for exams without combinations.
type ExamScope struct {
	ExamName           string    `gorm:"type:varchar(100);not null" json:"exam_name"`
	ExamYear           string    `gorm:"type:varchar(10);not null" json:"exam_year"`
	ExamDate           time.Time `gorm:"type:date;not null" json:"exam_date"`
	ShiftName          string    `gorm:"type:varchar(100);not null" json:"shift_name"`
	SubjectCombination string    `gorm:"type:varchar(100);not null;default:''" json:"subject_combination"`
}

// Admin is an operator allowed to manage answer keys and exams.
type Admin struct {
	BaseModel
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'admin'" json:"role"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`
}

// Exam hierarchy: Exam -> ExamDate -> ExamShift -> SubjectCombination.
type Exam struct {
	BaseModel
	Name                   string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_exam_name_year" json:"name"`
	Year                   string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_exam_name_year" json:"year"`
	Description            string     `gorm:"type:text" json:"description"`
	HasSubjectCombinations bool       `gorm:"default:false" json:"has_subject_combinations"`
	IsActive               bool       `gorm:"default:true;index" json:"is_active"`
	Dates                  []ExamDate `gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE" json:"dates,omitempty"`
}

type ExamDate struct {
	BaseModel
	ExamID uuid.UUID   `gorm:"type:char(36);not null;index" json:"exam_id"`
	Date   time.Time   `gorm:"type:date;not null" json:"date"`
	Shifts []ExamShift `gorm:"foreignKey:ExamDateID;constraint:OnDelete:CASCADE" json:"shifts,omitempty"`
}

type ExamShift struct {
	BaseModel
	ExamDateID   uuid.UUID            `gorm:"type:char(36);not null;index" json:"exam_date_id"`
	ShiftName    string               `gorm:"type:varchar(100);not null" json:"shift_name"`
	StartTime    string               `gorm:"type:varchar(20)" json:"start_time"`
	EndTime      string               `gorm:"type:varchar(20)" json:"end_time"`
	Combinations []SubjectCombination `gorm:"foreignKey:ExamShiftID;constraint:OnDelete:CASCADE" json:"combinations,omitempty"`
}

type SubjectCombination struct {
	BaseModel
	ExamShiftID uuid.UUID  `gorm:"type:char(36);not null;index" json:"exam_shift_id"`
	Name        string     `gorm:"type:varchar(100);not null" json:"name"`
	Subjects    StringList `gorm:"type:json" json:"subjects"`
}

// AnswerKey holds one subject's approved answers for a scope. Re-upload
// replaces Answers wholesale.
type AnswerKey struct {
	BaseModel
	ExamScope
	Subject     string     `gorm:"type:varchar(100);not null" json:"subject"`
	Answers     AnswerList `gorm:"type:json" json:"answers"`
	IsApproved  bool       `gorm:"default:false;index" json:"is_approved"`
	SubmittedBy string     `gorm:"type:varchar(255)" json:"submitted_by"`
}

// PendingAnswerKey is a public submission awaiting review.
type PendingAnswerKey struct {
	BaseModel
	ExamName           string    `gorm:"type:varchar(100);not null;index" json:"exam_name"`
	ExamYear           string    `gorm:"type:varchar(10);not null" json:"exam_year"`
	ExamDate           time.Time `gorm:"type:date;not null" json:"exam_date"`
	ShiftName          string    `gorm:"type:varchar(100);not null" json:"shift_name"`
	SubjectCombination string    `gorm:"type:varchar(100);not null;default:''" json:"subject_combination"`
	Subject            string    `gorm:"type:varchar(100);not null" json:"subject"`
	AnswerKeyData      string    `gorm:"type:text;not null" json:"answer_key_data"`
	SubmittedBy        string    `gorm:"type:varchar(255)" json:"submitted_by"`
}

// Scope returns the pending row's exam scope.
func (p *PendingAnswerKey) Scope() ExamScope {
	return ExamScope{
		ExamName:           p.ExamName,
		ExamYear:           p.ExamYear,
		ExamDate:           p.ExamDate,
		ShiftName:          p.ShiftName,
		SubjectCombination: p.SubjectCombination,
	}
}

type MarkingScheme struct {
	BaseModel
	ExamScope
	Subject          string  `gorm:"type:varchar(100);not null" json:"subject"`
	CorrectMarks     float64 `gorm:"not null" json:"correct_marks"`
	IncorrectMarks   float64 `gorm:"not null" json:"incorrect_marks"`
	UnattemptedMarks float64 `gorm:"not null" json:"unattempted_marks"`
	TotalQuestions   int     `gorm:"not null" json:"total_questions"`
	TotalMarks       float64 `gorm:"not null" json:"total_marks"`
}

// StudentResponse stores a parsed sheet and, once scored, its report.
type StudentResponse struct {
	BaseModel
	ExamName           string     `gorm:"type:varchar(100);not null;index:idx_response_scope" json:"exam_name"`
	ExamYear           string     `gorm:"type:varchar(10);not null;index:idx_response_scope" json:"exam_year"`
	ExamDate           time.Time  `gorm:"type:date;not null;index:idx_response_scope" json:"exam_date"`
	ShiftName          string     `gorm:"type:varchar(100);not null;index:idx_response_scope" json:"shift_name"`
	SubjectCombination string     `gorm:"type:varchar(100);not null;default:''" json:"subject_combination"`
	ApplicationNo      string     `gorm:"type:varchar(50);index" json:"application_no"`
	CandidateName      string     `gorm:"type:varchar(255)" json:"candidate_name"`
	RollNo             string     `gorm:"type:varchar(50)" json:"roll_no"`
	Responses          JSONList   `gorm:"type:json" json:"responses"`
	Analysis           JSONB      `gorm:"type:json" json:"analysis,omitempty"`
	AnalyzedAt         *time.Time `json:"analyzed_at,omitempty"`
}

// JSONList stores any JSON array.
type JSONList []interface{}

func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]interface{}(l))
	return string(b), err
}

func (l *JSONList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return json.Unmarshal(asBytes(value), l)
}

// ToJSONB round-trips v through encoding/json into a JSONB map.
func ToJSONB(v interface{}) (JSONB, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := JSONB{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.New("value does not encode to a JSON object")
	}
	return out, nil
}

// ToJSONList round-trips a slice through encoding/json.
func ToJSONList(v interface{}) (JSONList, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out JSONList
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.New("value does not encode to a JSON array")
	}
	return out, nil
}

// AuditLog tracks admin actions
type AuditLog struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	ActorID      uuid.UUID `gorm:"type:char(36);index" json:"actor_id"`
	Action       string    `gorm:"type:varchar(50);not null" json:"action"`
	ResourceType string    `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   uuid.UUID `gorm:"type:char(36);index" json:"resource_id"`
	Before       JSONB     `gorm:"type:json" json:"before"`
	After        JSONB     `gorm:"type:json" json:"after"`
	Timestamp    time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
	IP           string    `gorm:"type:varchar(45)" json:"ip"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// RefreshToken stores refresh tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	AdminID   uuid.UUID `gorm:"type:char(36);not null;index" json:"admin_id"`
	Token     string    `gorm:"type:varchar(500);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Revoked   bool      `gorm:"default:false;index" json:"revoked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
