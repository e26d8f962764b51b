package schema

// Table names
const (
	UsersTable         = "users"
	EventsTable        = "events"
	SchedulesTable     = "schedules"
	GradesTable        = "grades"
	AttendanceTable    = "attendance"
	NotificationsTable = "notifications"
)

// column helpers

func id() Column { return Column{Name: "id", Kind: KindID} }

func str(name string, size int) Column { return Column{Name: name, Kind: KindString, Size: size} }

func text(name string) Column { return Column{Name: name, Kind: KindText} }

func ref(name, table, onDelete string) Column {
	return Column{Name: name, Kind: KindRef, References: table, OnDelete: onDelete}
}

func of(name string, kind Kind) Column { return Column{Name: name, Kind: kind} }

func notNull(c Column) Column {
	c.NotNull = true
	return c
}

func withDefault(c Column, v interface{}) Column {
	c.NotNull = true
	c.Default = v
	return c
}

func timestamps() []Column {
	return []Column{
		notNull(of("created_at", KindTimestamp)),
		notNull(of("updated_at", KindTimestamp)),
	}
}

func columns(groups ...[]Column) []Column {
	var cols []Column
	for _, g := range groups {
		cols = append(cols, g...)
	}
	return cols
}

// Tables returns the declared schema, referenced tables first.
func Tables() []Table {
	return []Table{
		{
			Name: UsersTable,
			Columns: columns(
				[]Column{
					id(),
					notNull(str("name", 150)),
					str("username", 150),
					str("email", 254),
					notNull(of("password_hash", KindBytes)),
					withDefault(str("role", 20), "student"),
					withDefault(of("is_active", KindBool), true),
				},
				timestamps(),
				[]Column{
					of("last_login", KindTimestamp),
					// profile
					str("phone", 30),
					text("address"),
					str("avatar_url", 255),
					text("bio"),
					str("department", 100),
					str("course", 100),
					of("year_level", KindSmallInt),
					str("section", 50),
					// appearance
					withDefault(str("theme", 10), "light"),
				},
			),
			Indexes: []Index{
				{Name: "uq_users_username", Columns: []string{"username"}, Unique: true},
				{Name: "uq_users_email", Columns: []string{"email"}, Unique: true},
				{Name: "idx_users_role", Columns: []string{"role"}},
			},
		},
		{
			Name: EventsTable,
			Columns: columns(
				[]Column{
					id(),
					notNull(str("title", 200)),
					text("description"),
					str("location", 200),
					notNull(of("start_at", KindTimestamp)),
					of("end_at", KindTimestamp),
					withDefault(str("audience", 10), "all"),
					ref("created_by", UsersTable, SetNull),
				},
				timestamps(),
			),
			Indexes: []Index{
				{Name: "idx_events_start_at", Columns: []string{"start_at"}},
			},
		},
		{
			Name: SchedulesTable,
			Columns: columns(
				[]Column{
					id(),
					notNull(ref("teacher_id", UsersTable, Cascade)),
					notNull(str("subject", 150)),
					str("room", 50),
					notNull(of("day_of_week", KindSmallInt)),
					notNull(str("start_time", 5)),
					notNull(str("end_time", 5)),
					// targeting
					str("target_course", 100),
					of("target_year_level", KindSmallInt),
					str("target_section", 50),
				},
				timestamps(),
			),
			Indexes: []Index{
				{Name: "idx_schedules_teacher_id", Columns: []string{"teacher_id"}},
				{Name: "idx_schedules_day_of_week", Columns: []string{"day_of_week"}},
				{Name: "idx_schedules_targeting", Columns: []string{"target_course", "target_year_level", "target_section"}},
			},
		},
		{
			Name: GradesTable,
			Columns: columns(
				[]Column{
					id(),
					notNull(ref("student_id", UsersTable, Cascade)),
					ref("faculty_id", UsersTable, SetNull),
					notNull(str("subject", 150)),
					notNull(str("term", 50)),
					notNull(of("score", KindFloat)),
					text("remarks"),
				},
				timestamps(),
			),
			Indexes: []Index{
				{Name: "uq_grades_student_subject_term", Columns: []string{"student_id", "subject", "term"}, Unique: true},
				{Name: "idx_grades_faculty_id", Columns: []string{"faculty_id"}},
			},
		},
		{
			Name: AttendanceTable,
			Columns: columns(
				[]Column{
					id(),
					notNull(ref("student_id", UsersTable, Cascade)),
					ref("faculty_id", UsersTable, SetNull),
					notNull(ref("schedule_id", SchedulesTable, Cascade)),
					notNull(of("date", KindDate)),
					notNull(str("status", 10)),
					text("remarks"),
				},
				timestamps(),
			),
			Indexes: []Index{
				{Name: "uq_attendance_student_schedule_date", Columns: []string{"student_id", "schedule_id", "date"}, Unique: true},
				{Name: "idx_attendance_schedule_date", Columns: []string{"schedule_id", "date"}},
			},
		},
		{
			Name: NotificationsTable,
			Columns: []Column{
				id(),
				ref("sender_id", UsersTable, SetNull),
				notNull(ref("receiver_id", UsersTable, Cascade)),
				notNull(str("title", 200)),
				notNull(text("message")),
				str("link", 255),
				withDefault(of("is_read", KindBool), false),
				of("read_at", KindTimestamp),
				notNull(of("created_at", KindTimestamp)),
			},
			Indexes: []Index{
				{Name: "idx_notifications_receiver_is_read", Columns: []string{"receiver_id", "is_read"}},
			},
		},
	}
}
