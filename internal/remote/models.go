package remote

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Table models for stores whose schema this program owns (the embedded
// SQLite remote and tests). Columns follow the remote naming convention.

type petRow struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	Name        string
	Type        string
	Breed       string
	BirthDate   *time.Time
	Weight      float64
	Gender      string
	Color       string
	MicrochipID string
	PhotoURL    string
	Allergies   string
	VetName     string
	VetPhone    string
	VetClinic   string
	IsActive    bool
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

func (petRow) TableName() string { return "pets" }

type taskRow struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	PetID       string `gorm:"index"`
	Title       string
	Description string
	Category    string
	Priority    string
	DueDate     *time.Time
	Completed   bool
	CompletedAt *time.Time
	RepeatRule  datatypes.JSON
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

func (taskRow) TableName() string { return "tasks" }

type mealRow struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	PetID       string `gorm:"index"`
	Name        string
	FoodType    string
	Amount      float64
	Unit        string
	MealTime    *time.Time
	Calories    int
	Preference  string
	IsPreferred bool
	Notes       string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

func (mealRow) TableName() string { return "meals" }

type medicationRow struct {
	ID               string `gorm:"primaryKey"`
	UserID           string `gorm:"index"`
	PetID            string `gorm:"index"`
	Name             string
	Dosage           string
	Frequency        string
	StartDate        *time.Time
	EndDate          *time.Time
	DoseSchedule     datatypes.JSON
	PrescriberName   string
	PrescriberPhone  string
	PrescriberClinic string
	Active           bool
	RefillReminder   bool
	SideEffects      string
	CreatedAt        *time.Time
	UpdatedAt        *time.Time
}

func (medicationRow) TableName() string { return "medications" }

type healthRecordRow struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	PetID       string `gorm:"index"`
	RecordType  string
	Title       string
	Date        *time.Time
	NextDueDate *time.Time
	VetName     string
	VetPhone    string
	VetClinic   string
	Weight      float64
	Notes       string
	Tags        string
	Attachments datatypes.JSON
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

func (healthRecordRow) TableName() string { return "health_records" }

type activitySessionRow struct {
	ID              string `gorm:"primaryKey"`
	UserID          string `gorm:"index"`
	PetID           string `gorm:"index"`
	ActivityType    string
	StartTime       *time.Time
	EndTime         *time.Time
	DurationMinutes int
	DistanceKm      float64
	Calories        int
	Mood            string
	Notes           string
	Tags            string
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
}

func (activitySessionRow) TableName() string { return "activity_sessions" }

type userRow struct {
	ID        string `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	Name      string
	Phone     string
	AvatarURL string
	Timezone  string
	Settings  datatypes.JSON
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

func (userRow) TableName() string { return "users" }

func models() []any {
	return []any{
		&userRow{},
		&petRow{},
		&taskRow{},
		&mealRow{},
		&medicationRow{},
		&healthRecordRow{},
		&activitySessionRow{},
	}
}

// EnsureSchema creates or extends every collection table.
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(models()...)
}
