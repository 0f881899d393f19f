package service

import "github.com/smallbiznis/valora-identity/internal/domain"

// UserViewModel is the public projection of a user. It never carries the password hash.
type UserViewModel struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// OrganisationViewModel is the public projection of an organisation.
type OrganisationViewModel struct {
	OrgID       string `json:"orgId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	AccessToken string        `json:"accessToken"`
	User        UserViewModel `json:"user"`
}

// LoginResult extends AuthResult with the session marker established at login.
type LoginResult struct {
	AuthResult
	SessionID string `json:"-"`
}

// TokenPair holds an access and a refresh token.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AccessToken is the result of a refresh.
type AccessToken struct {
	Access string `json:"access"`
}

func newUserViewModel(user domain.User) UserViewModel {
	return UserViewModel{
		UserID:    user.UserID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
	}
}

func newOrganisationViewModel(org domain.Organisation) OrganisationViewModel {
	return OrganisationViewModel{
		OrgID:       org.OrgID.String(),
		Name:        org.Name,
		Description: org.Description,
	}
}
