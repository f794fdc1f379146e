package permissions

// Permission is a single access right in the form "resource:action".
// The set of permissions is closed and known at compile time.
type Permission string

const (
	BooksCreate Permission = "books:create"
	BooksRead   Permission = "books:read"
	BooksUpdate Permission = "books:update"
	BooksDelete Permission = "books:delete"

	BorrowsCreate  Permission = "borrows:create"
	BorrowsReturn  Permission = "borrows:return"
	BorrowsRead    Permission = "borrows:read"
	BorrowsReadAll Permission = "borrows:read_all"

	UsersRead   Permission = "users:read"
	UsersManage Permission = "users:manage"
)

// Role is one of the fixed user roles. Each role maps to a static default
// permission set; per-user overrides are layered on top by the resolver.
type Role string

const (
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
)

// Effect is the direction of a permission override.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// PermissionDefinition describes a single, specific permission
type PermissionDefinition struct {
	Key         Permission `json:"key"`         // unique key, e.g., "books:create"
	Name        string     `json:"name"`        // friendly name, e.g., "Register Book"
	Description string     `json:"description"` // detailed description of what the permission allows
}

// PermissionGroupDefinition groups related permissions by resource
type PermissionGroupDefinition struct {
	Key         string                 `json:"key"`         // unique key for the group, e.g., "books"
	Name        string                 `json:"name"`        // friendly name for the group
	Description string                 `json:"description"` // detailed description of the permission group
	Permissions []PermissionDefinition `json:"permissions"` // list of permissions within this group
}

// DefinedPermissionGroups holds all statically defined permission groups and their permissions
var DefinedPermissionGroups = []PermissionGroupDefinition{
	{
		Key:         "books",
		Name:        "Book Inventory",
		Description: "Permissions related to managing the book inventory.",
		Permissions: []PermissionDefinition{
			{
				Key:         BooksCreate,
				Name:        "Register Book",
				Description: "Allows registering new book copies in the library.",
			},
			{
				Key:         BooksRead,
				Name:        "View Books",
				Description: "Allows listing and viewing books in the catalog.",
			},
			{
				Key:         BooksUpdate,
				Name:        "Edit Book",
				Description: "Allows editing book details (ISBN, title, author, availability).",
			},
			{
				Key:         BooksDelete,
				Name:        "Remove Book",
				Description: "Allows removing book copies that are not currently borrowed.",
			},
		},
	},
	{
		Key:         "borrows",
		Name:        "Borrowing",
		Description: "Permissions related to borrow and return transactions.",
		Permissions: []PermissionDefinition{
			{
				Key:         BorrowsCreate,
				Name:        "Borrow Book",
				Description: "Allows borrowing an available book copy.",
			},
			{
				Key:         BorrowsReturn,
				Name:        "Return Book",
				Description: "Allows returning a book the user borrowed themselves.",
			},
			{
				Key:         BorrowsRead,
				Name:        "View Own Borrows",
				Description: "Allows viewing the user's own borrow records.",
			},
			{
				Key:         BorrowsReadAll,
				Name:        "View All Borrows",
				Description: "Allows viewing borrow records of every user.",
			},
		},
	},
	{
		Key:         "users",
		Name:        "User Management",
		Description: "Permissions related to managing user accounts.",
		Permissions: []PermissionDefinition{
			{
				Key:         UsersRead,
				Name:        "View Users",
				Description: "Allows listing and viewing user accounts.",
			},
			{
				Key:         UsersManage,
				Name:        "Manage Users",
				Description: "Allows creating, editing, and deleting user accounts.",
			},
		},
	},
}

// RoleDefaults maps each role to its static default permission set. The map
// is built once at package load and must never be mutated at runtime; use
// DefaultsForRole to read from it.
var RoleDefaults = map[Role][]Permission{
	RoleLibrarian: {
		BooksCreate,
		BooksRead,
		BooksUpdate,
		BooksDelete,
		BorrowsRead,
		BorrowsReadAll,
		UsersRead,
	},
	RoleMember: {
		BooksRead,
		BorrowsCreate,
		BorrowsReturn,
		BorrowsRead,
	},
}

var (
	allPermissionsMap map[Permission]PermissionDefinition
	allPermissions    []Permission
)

func init() {
	allPermissionsMap = make(map[Permission]PermissionDefinition)
	for _, group := range DefinedPermissionGroups {
		for _, perm := range group.Permissions {
			allPermissionsMap[perm.Key] = perm
			allPermissions = append(allPermissions, perm.Key)
		}
	}
}

// All returns every defined permission in definition order
func All() []Permission {
	// return a copy to prevent modification of the internal slice
	perms := make([]Permission, len(allPermissions))
	copy(perms, allPermissions)
	return perms
}

// IsValid checks if a given permission key is defined
func IsValid(key string) bool {
	_, ok := allPermissionsMap[Permission(key)]
	return ok
}

// Parse converts a raw permission string into a Permission. It never errors;
// the second return value reports whether the string names a defined
// permission, so callers can skip stale or retired values.
func Parse(key string) (Permission, bool) {
	p := Permission(key)
	_, ok := allPermissionsMap[p]
	return p, ok
}

// GetDefinition retrieves a specific permission definition by its key.
// Returns the definition and true if found, otherwise an empty definition and false.
func GetDefinition(key Permission) (PermissionDefinition, bool) {
	def, ok := allPermissionsMap[key]
	return def, ok
}

// DefaultsForRole returns a copy of the default permission set for a role.
// Unrecognized roles resolve to an empty set rather than an error.
func DefaultsForRole(role Role) []Permission {
	defaults, ok := RoleDefaults[role]
	if !ok {
		return []Permission{}
	}
	perms := make([]Permission, len(defaults))
	copy(perms, defaults)
	return perms
}

// IsValidRole checks if a string names a defined role
func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleLibrarian, RoleMember:
		return true
	default:
		return false
	}
}

// IsValidEffect checks if a string names a defined override effect
func IsValidEffect(effect string) bool {
	switch Effect(effect) {
	case EffectAllow, EffectDeny:
		return true
	default:
		return false
	}
}
