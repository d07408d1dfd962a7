package models

type Role string

const (
	RoleConsumer Role = "consumer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleProvider, RoleAdmin:
		return true
	}
	return false
}
