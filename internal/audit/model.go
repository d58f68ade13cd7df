// Package audit renders read-only cross-reference tables of users,
// groups, and permissions for admin review.
package audit

import (
	"sort"
	"time"
)

// Permission is a named capability identified by its codename.
type Permission struct {
	Codename string `yaml:"codename"`
	Name     string `yaml:"name"`
}

// Group bundles permissions under one name.
type Group struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

// User is an account as exported from the identity store. Only staff
// and superusers are worth auditing, so datasets typically contain
// just those.
type User struct {
	Username    string    `yaml:"username"`
	Email       string    `yaml:"email"`
	FirstName   string    `yaml:"first_name"`
	LastName    string    `yaml:"last_name"`
	IsStaff     bool      `yaml:"is_staff"`
	IsSuperuser bool      `yaml:"is_superuser"`
	LastLogin   time.Time `yaml:"last_login"`
	Groups      []string  `yaml:"groups"`
	Permissions []string  `yaml:"permissions"`
}

// InGroup reports whether the user is a member of the named group.
func (u User) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// Dataset is the full set of records the audit view cross-references.
type Dataset struct {
	Users       []User       `yaml:"users"`
	Groups      []Group      `yaml:"groups"`
	Permissions []Permission `yaml:"permissions"`
}

// groupPerms returns the permission codenames of the named group as a
// set, or nil for an unknown group.
func (d *Dataset) groupPerms(name string) map[string]bool {
	for i := range d.Groups {
		if d.Groups[i].Name != name {
			continue
		}
		set := make(map[string]bool, len(d.Groups[i].Permissions))
		for _, p := range d.Groups[i].Permissions {
			set[p] = true
		}
		return set
	}
	return nil
}

// CheckAccess reports whether the user holds the permission, directly
// or through group membership. Superusers hold every permission.
func (d *Dataset) CheckAccess(u User, codename string) bool {
	if u.IsSuperuser {
		return true
	}
	for _, p := range u.Permissions {
		if p == codename {
			return true
		}
	}
	for _, g := range u.Groups {
		if d.groupPerms(g)[codename] {
			return true
		}
	}
	return false
}

// sortRecords orders everything by name so renders are stable
// regardless of export order.
func (d *Dataset) sortRecords() {
	sort.Slice(d.Users, func(i, j int) bool { return d.Users[i].Username < d.Users[j].Username })
	sort.Slice(d.Groups, func(i, j int) bool { return d.Groups[i].Name < d.Groups[j].Name })
	sort.Slice(d.Permissions, func(i, j int) bool { return d.Permissions[i].Codename < d.Permissions[j].Codename })
}
