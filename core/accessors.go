package core

type PropertyKind int

const (
	PropertyKindString PropertyKind = iota
	PropertyKindBool
	PropertyKindTime
	PropertyKindStringList
)

func (k PropertyKind) String() string {
	switch k {
	case PropertyKindBool:
		return "bool"
	case PropertyKindTime:
		return "time"
	case PropertyKindStringList:
		return "string_list"
	default:
		return "string"
	}
}

// Accessor is a statically-known getter for one named directory property.
// Get returns nil when the property is absent on the snapshot (nil bool,
// nil time) or when the entity is of the wrong kind.
type Accessor struct {
	Name string
	Kind PropertyKind
	Get  func(entity DirectoryEntity) any
}

// AccessorRegistry maps canonical lowercase property names to typed getters
// for one entity kind. Built once at startup; resolution is
// case-insensitive.
type AccessorRegistry struct {
	kind   EntityKind
	byName map[string]Accessor
}

func (r *AccessorRegistry) EntityKind() EntityKind {
	if r == nil {
		return ""
	}
	return r.kind
}

func (r *AccessorRegistry) Resolve(name string) (Accessor, bool) {
	if r == nil {
		return Accessor{}, false
	}
	accessor, ok := r.byName[canonicalPropertyName(name)]
	return accessor, ok
}

func (r *AccessorRegistry) PropertyNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

func newAccessorRegistry(kind EntityKind, accessors []Accessor) *AccessorRegistry {
	byName := make(map[string]Accessor, len(accessors))
	for _, accessor := range accessors {
		byName[canonicalPropertyName(accessor.Name)] = accessor
	}
	return &AccessorRegistry{kind: kind, byName: byName}
}

var groupAccessorRegistry = newAccessorRegistry(EntityKindGroup, []Accessor{
	{Name: "id", Kind: PropertyKindString, Get: groupString(func(g DirectoryGroup) string { return g.ID })},
	{Name: "displayName", Kind: PropertyKindString, Get: groupString(func(g DirectoryGroup) string { return g.DisplayName })},
	{Name: "description", Kind: PropertyKindString, Get: groupString(func(g DirectoryGroup) string { return g.Description })},
	{Name: "createdAt", Kind: PropertyKindTime, Get: func(entity DirectoryEntity) any {
		group, ok := entity.(DirectoryGroup)
		if !ok || group.CreatedAt == nil {
			return nil
		}
		return *group.CreatedAt
	}},
})

var userAccessorRegistry = newAccessorRegistry(EntityKindUser, []Accessor{
	{Name: "id", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.ID })},
	{Name: "userPrincipalName", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.UserPrincipalName })},
	{Name: "displayName", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.DisplayName })},
	{Name: "givenName", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.GivenName })},
	{Name: "surname", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.Surname })},
	{Name: "mail", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.Mail })},
	{Name: "department", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.Department })},
	{Name: "jobTitle", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.JobTitle })},
	{Name: "officeLocation", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.OfficeLocation })},
	{Name: "city", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.City })},
	{Name: "state", Kind: PropertyKindString, Get: userString(func(u DirectoryUser) string { return u.State })},
	{Name: "accountEnabled", Kind: PropertyKindBool, Get: func(entity DirectoryEntity) any {
		user, ok := entity.(DirectoryUser)
		if !ok || user.AccountEnabled == nil {
			return nil
		}
		return *user.AccountEnabled
	}},
	{Name: "employeeHireDate", Kind: PropertyKindTime, Get: func(entity DirectoryEntity) any {
		user, ok := entity.(DirectoryUser)
		if !ok || user.EmployeeHireDate == nil {
			return nil
		}
		return *user.EmployeeHireDate
	}},
	{Name: "otherMails", Kind: PropertyKindStringList, Get: func(entity DirectoryEntity) any {
		user, ok := entity.(DirectoryUser)
		if !ok || user.OtherMails == nil {
			return nil
		}
		return append([]string(nil), user.OtherMails...)
	}},
})

func GroupAccessors() *AccessorRegistry { return groupAccessorRegistry }

func UserAccessors() *AccessorRegistry { return userAccessorRegistry }

func RegistryFor(kind EntityKind) *AccessorRegistry {
	switch kind {
	case EntityKindGroup:
		return groupAccessorRegistry
	case EntityKindUser:
		return userAccessorRegistry
	default:
		return nil
	}
}

func RegistryForCollection(collection Collection) *AccessorRegistry {
	switch collection {
	case CollectionGroups:
		return groupAccessorRegistry
	case CollectionUsers:
		return userAccessorRegistry
	default:
		return nil
	}
}

func groupString(get func(DirectoryGroup) string) func(DirectoryEntity) any {
	return func(entity DirectoryEntity) any {
		group, ok := entity.(DirectoryGroup)
		if !ok {
			return nil
		}
		return get(group)
	}
}

func userString(get func(DirectoryUser) string) func(DirectoryEntity) any {
	return func(entity DirectoryEntity) any {
		user, ok := entity.(DirectoryUser)
		if !ok {
			return nil
		}
		return get(user)
	}
}
