package models

import "strings"

// RosterEntry is one teacher assignment read from the school database.
type RosterEntry struct {
	SubjectID   string `db:"subject_id" json:"subjectId"`
	SubjectName string `db:"subject_name" json:"subjectName"`
	TeacherID   string `db:"teacher_id" json:"teacherId"`
	TeacherName string `db:"teacher_name" json:"teacherName"`
}

// SubjectsFromRoster folds assignments into subjects with their faculty pools.
// Subject order follows the first appearance in entries and teachers are de-duplicated.
func SubjectsFromRoster(entries []RosterEntry) []Subject {
	index := make(map[string]int)
	seenTeacher := make(map[string]map[string]bool)
	subjects := make([]Subject, 0)
	for _, entry := range entries {
		name := strings.TrimSpace(entry.SubjectName)
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(subjects)
			index[name] = i
			seenTeacher[name] = make(map[string]bool)
			subjects = append(subjects, Subject{Name: name, Faculty: []string{}})
		}
		teacher := strings.TrimSpace(entry.TeacherName)
		if teacher == "" || seenTeacher[name][teacher] {
			continue
		}
		seenTeacher[name][teacher] = true
		subjects[i].Faculty = append(subjects[i].Faculty, teacher)
	}
	return subjects
}
