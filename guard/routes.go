package guard

// Well-known navigation targets within the application shell.
const (
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
	RouteStudents  = "/students"
	RouteTeachers  = "/teachers"
	RouteClasses   = "/classes"
	RouteSettings  = "/settings"
)
