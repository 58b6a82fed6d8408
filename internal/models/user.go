package models

// User is the users/{uid} document. A user without PartOfAviary is a guardian whose household
// id is their own uid.
type User struct {
	ID            string `json:"id,omitempty"`
	PartOfAviary  string `json:"partOfAviary,omitempty"`
	GuardianEmail string `json:"guardianEmail,omitempty"`
	FCMToken      string `json:"fcmToken,omitempty"`
}

// IsCaregiver reports whether the user joined another guardian's household.
func (u *User) IsCaregiver() bool {
	return u != nil && u.PartOfAviary != ""
}

// HouseholdID returns the aviary the user belongs to.
func (u *User) HouseholdID(uid string) string {
	if u.IsCaregiver() {
		return u.PartOfAviary
	}
	return uid
}
