package core

import (
	"context"
	"sort"
	"strings"

	"hemocore/pkg/domain"
)

// RegisterUser persists a new account after role-specific validation. The
// caller supplies the bcrypt hash; the core never sees plaintext passwords.
// Organizations start unapproved; donors and hospitals are usable immediately.
func (s *Service) RegisterUser(ctx context.Context, user User) (User, error) {
	ctx, done := s.instrument(ctx, "register_user")
	var created User
	err := s.registerUser(ctx, user, &created)
	done(err)
	return created, err
}

func (s *Service) registerUser(ctx context.Context, user User, out *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		return ValidationError{Field: "email", Detail: "required"}
	}
	if user.Name == "" {
		return ValidationError{Field: "name", Detail: "required"}
	}
	if user.PasswordHash == "" {
		return ValidationError{Field: "password", Detail: "required"}
	}
	switch user.Role {
	case RoleDonor:
		if user.BloodGroup != "" && !user.BloodGroup.Valid() {
			return ValidationError{Field: "blood_group", Detail: "unknown group"}
		}
		if user.Age != 0 && (user.Age < 18 || user.Age > 65) {
			return ValidationError{Field: "age", Detail: "donors must be between 18 and 65"}
		}
		user.Approved = true
		user.BloodGroupVerified = false
	case RoleHospital:
		if user.HospitalName == "" {
			return ValidationError{Field: "hospital_name", Detail: "required"}
		}
		if user.LicenseNumber == "" {
			return ValidationError{Field: "license_number", Detail: "required"}
		}
		user.Approved = true
	case RoleOrganization:
		if user.OrganizationName == "" {
			return ValidationError{Field: "organization_name", Detail: "required"}
		}
		switch user.OrganizationType {
		case domain.OrgBloodBank, domain.OrgRedCross, domain.OrgNGO, domain.OrgHospitalAffiliated:
		default:
			return ValidationError{Field: "organization_type", Detail: "unknown type"}
		}
		user.Approved = false
	case RoleAdmin:
		user.Approved = true
	default:
		return ValidationError{Field: "role", Detail: "unknown role"}
	}

	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, exists := findUserByEmail(tx.Snapshot(), user.Email); exists {
			return StateError{Entity: EntityUser, Code: "email_taken", Detail: user.Email}
		}
		created, err := tx.CreateUser(user)
		if err != nil {
			return err
		}
		*out = created
		return nil
	})
	return err
}

// FindUserByEmail resolves an account by its (lowercased) email address.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var found User
	err := s.store.View(ctx, func(view TransactionView) error {
		u, ok := findUserByEmail(view, email)
		if !ok {
			return NotFoundError{Entity: EntityUser, ID: email}
		}
		found = u
		return nil
	})
	return found, err
}

// GetUser returns one account by id.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	var found User
	err := s.store.View(ctx, func(view TransactionView) error {
		u, ok := view.FindUser(id)
		if !ok {
			return NotFoundError{Entity: EntityUser, ID: id}
		}
		found = u
		return nil
	})
	return found, err
}

// UpdateUser applies a mutator to an account inside a transaction. Identity
// fields are pinned: the mutator cannot change id, email, role, or the
// password hash through this path.
func (s *Service) UpdateUser(ctx context.Context, id string, mutator func(*User) error) (User, error) {
	ctx, done := s.instrument(ctx, "update_user")
	var updated User
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.FindUser(id); !ok {
			return NotFoundError{Entity: EntityUser, ID: id}
		}
		var err error
		updated, err = tx.UpdateUser(id, func(u *User) error {
			email, role, hash := u.Email, u.Role, u.PasswordHash
			if err := mutator(u); err != nil {
				return err
			}
			u.Email, u.Role, u.PasswordHash = email, role, hash
			return nil
		})
		return err
	})
	done(err)
	return updated, err
}

// SetPasswordHash replaces an account's stored credential hash.
func (s *Service) SetPasswordHash(ctx context.Context, id, hash string) error {
	if hash == "" {
		return ValidationError{Field: "password", Detail: "required"}
	}
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.FindUser(id); !ok {
			return NotFoundError{Entity: EntityUser, ID: id}
		}
		_, err := tx.UpdateUser(id, func(u *User) error {
			u.PasswordHash = hash
			return nil
		})
		return err
	})
	return err
}

// ListUsers pages accounts, optionally filtered by role, newest first.
func (s *Service) ListUsers(ctx context.Context, role Role, page, limit int) ([]User, int, error) {
	var users []User
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, u := range view.ListUsers() {
			if role != "" && u.Role != role {
				continue
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	pageUsers, total := paginate(users, page, limit)
	return pageUsers, total, nil
}

// SetOrganizationApproval flips an organization's approved flag.
func (s *Service) SetOrganizationApproval(ctx context.Context, orgID string, approved bool) (User, error) {
	ctx, done := s.instrument(ctx, "set_organization_approval")
	var updated User
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		u, ok := tx.FindUser(orgID)
		if !ok {
			return NotFoundError{Entity: EntityUser, ID: orgID}
		}
		if u.Role != RoleOrganization {
			return StateError{Entity: EntityUser, ID: orgID, Code: "not_an_organization", Detail: string(u.Role)}
		}
		var err error
		updated, err = tx.UpdateUser(orgID, func(u *User) error {
			u.Approved = approved
			return nil
		})
		return err
	})
	done(err)
	return updated, err
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	ctx, done := s.instrument(ctx, "delete_user")
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.FindUser(id); !ok {
			return NotFoundError{Entity: EntityUser, ID: id}
		}
		return tx.DeleteUser(id)
	})
	done(err)
	return err
}

// ListUnverifiedDonors returns donors whose blood group still needs
// organization verification.
func (s *Service) ListUnverifiedDonors(ctx context.Context) ([]User, error) {
	var donors []User
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, u := range view.ListUsers() {
			if u.Role == RoleDonor && !u.BloodGroupVerified {
				donors = append(donors, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(donors, func(i, j int) bool { return donors[i].CreatedAt.Before(donors[j].CreatedAt) })
	return donors, nil
}

// VerifyDonorBloodGroup records an organization's verification of a donor's
// blood group, correcting the recorded group when it differs.
func (s *Service) VerifyDonorBloodGroup(ctx context.Context, donorID string, group BloodGroup, verified bool) (User, error) {
	ctx, done := s.instrument(ctx, "verify_donor_blood_group")
	var updated User
	if !group.Valid() {
		err := ValidationError{Field: "blood_group", Detail: "unknown group"}
		done(err)
		return User{}, err
	}
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		u, ok := tx.FindUser(donorID)
		if !ok {
			return NotFoundError{Entity: EntityUser, ID: donorID}
		}
		if u.Role != RoleDonor {
			return StateError{Entity: EntityUser, ID: donorID, Code: "not_a_donor", Detail: string(u.Role)}
		}
		var err error
		updated, err = tx.UpdateUser(donorID, func(u *User) error {
			u.BloodGroup = group
			u.BloodGroupVerified = verified
			return nil
		})
		return err
	})
	done(err)
	return updated, err
}
