package domain

type Organization struct {
	ID     OrganizationID
	UserID UserID
	Name   string
}

type Student struct {
	ID        StudentID
	UserID    UserID
	FirstName string
	LastName  string
}

func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}
