package order

import "strings"

// customerKind discriminates the Customer union.
type customerKind uint8

const (
	kindGuest customerKind = iota
	kindUser
)

// Customer identifies who placed an order: either a registered user or a
// guest contact bundle. The two variants are mutually exclusive by
// construction; an order can never carry both.
type Customer struct {
	kind      customerKind
	userID    string
	email     string
	firstName string
	lastName  string
	phone     string
}

// ForUser builds the registered-user variant.
func ForUser(userID, email, firstName, lastName string) Customer {
	return Customer{
		kind:      kindUser,
		userID:    userID,
		email:     email,
		firstName: firstName,
		lastName:  lastName,
	}
}

// ForGuest builds the guest variant from a contact bundle.
func ForGuest(email, firstName, lastName, phone string) Customer {
	return Customer{
		kind:      kindGuest,
		email:     email,
		firstName: firstName,
		lastName:  lastName,
		phone:     phone,
	}
}

// IsGuest reports whether this is the guest variant.
func (c Customer) IsGuest() bool { return c.kind == kindGuest }

// UserID returns the owning user id and true for the user variant.
func (c Customer) UserID() (string, bool) {
	if c.kind != kindUser {
		return "", false
	}
	return c.userID, true
}

// Email returns the contact email regardless of variant.
func (c Customer) Email() string { return c.email }

// FirstName returns the contact first name.
func (c Customer) FirstName() string { return c.firstName }

// LastName returns the contact last name.
func (c Customer) LastName() string { return c.lastName }

// Name returns "First Last", trimmed when either part is empty.
func (c Customer) Name() string {
	return strings.TrimSpace(c.firstName + " " + c.lastName)
}

// Phone returns the contact phone. Empty for the user variant unless the
// user record carried one.
func (c Customer) Phone() string { return c.phone }

// EmailMatches performs the case-insensitive contact email comparison used
// for guest order access control.
func (c Customer) EmailMatches(email string) bool {
	return strings.EqualFold(c.email, email)
}
