package filesystem

// SetRename replaces the rename function so tests can simulate a
// cross-device move.
func (s *Store) SetRename(rename func(oldpath, newpath string) error) {
	s.rename = rename
}
