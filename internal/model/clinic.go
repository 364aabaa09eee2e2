package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Consent is the tri-state answer to using uploaded social content in promotion.
type Consent string

const (
	ConsentUnset    Consent = "unset"
	ConsentAgreed   Consent = "agreed"
	ConsentDeclined Consent = "declined"
)

func (c Consent) Valid() bool {
	switch c {
	case ConsentUnset, ConsentAgreed, ConsentDeclined, "":
		return true
	}
	return false
}

// Value stores agreed/declined as a boolean and unset as NULL.
func (c Consent) Value() (driver.Value, error) {
	switch c {
	case ConsentAgreed:
		return true, nil
	case ConsentDeclined:
		return false, nil
	case ConsentUnset, "":
		return nil, nil
	}
	return nil, fmt.Errorf("invalid consent %q", string(c))
}

func (c *Consent) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = ConsentUnset
	case bool:
		if v {
			*c = ConsentAgreed
		} else {
			*c = ConsentDeclined
		}
	default:
		return fmt.Errorf("cannot scan %T into Consent", src)
	}
	return nil
}

// MessagingHandles are the fixed set of messaging-app contacts.
type MessagingHandles struct {
	KakaoTalk string `db:"kakao_talk" json:"kakao_talk"`
	Line      string `db:"line" json:"line"`
	WeChat    string `db:"wechat" json:"wechat"`
	WhatsApp  string `db:"whatsapp" json:"whatsapp"`
	Telegram  string `db:"telegram" json:"telegram"`
}

// Address holds both the road-name and lot-number forms of a clinic address.
type Address struct {
	RoadAddress   string   `db:"road_address" json:"road_address"`
	RoadAddressEn string   `db:"road_address_en" json:"road_address_en"`
	LotAddress    string   `db:"lot_address" json:"lot_address"`
	LotAddressEn  string   `db:"lot_address_en" json:"lot_address_en"`
	Detail        string   `db:"address_detail" json:"detail"`
	Directions    string   `db:"directions" json:"directions"`
	Latitude      *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64 `db:"longitude" json:"longitude,omitempty"`
}

func (a Address) IsEmpty() bool {
	return a.RoadAddress == "" && a.LotAddress == ""
}

// ClinicProfile is the aggregate root persisted in the hospitals table.
type ClinicProfile struct {
	ID               uuid.UUID `db:"id" json:"id"`
	LegacyID         int64     `db:"id_old" json:"legacy_id"`
	Name             string    `db:"name" json:"name"`
	Email            string    `db:"email" json:"email"`
	Phone            string    `db:"phone" json:"phone"`
	MessagingHandles `json:"messaging"`
	Address          `json:"address"`
	RegionCode       int            `db:"region_code" json:"region_code"`
	ThumbnailURL     string         `db:"thumbnail_url" json:"thumbnail_url"`
	Gallery          pq.StringArray `db:"gallery" json:"gallery"`
	Version          int            `db:"version" json:"version"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// ClinicDetails is the child row of a clinic profile.
type ClinicDetails struct {
	HospitalID         uuid.UUID      `db:"hospital_id" json:"hospital_id"`
	Introduction       string         `db:"introduction" json:"introduction"`
	IntroductionEn     string         `db:"introduction_en" json:"introduction_en"`
	SocialConsent      Consent        `db:"social_consent" json:"social_consent"`
	AvailableLanguages pq.StringArray `db:"available_languages" json:"available_languages"`
	MiscNotes          string         `db:"misc_notes" json:"misc_notes"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}
