package filexfer

// SetSize sets the Size field, and sets the associated flag bit.
func (a *Attributes) SetSize(size uint64) {
	a.Flags |= AttrSize
	a.Size = size
}

// SetUIDGID sets the UID and GID fields, and sets the associated flag bit.
func (a *Attributes) SetUIDGID(uid, gid uint32) {
	a.Flags |= AttrUIDGID
	a.UID, a.GID = uid, gid
}

// SetPermissions sets the Permissions field, and sets the associated flag bit.
func (a *Attributes) SetPermissions(perm FileMode) {
	a.Flags |= AttrPermissions
	a.Permissions = uint32(perm)
}

// SetACModTime sets the ATime and MTime fields, and sets the associated flag bit.
func (a *Attributes) SetACModTime(atime, mtime uint32) {
	a.Flags |= AttrACModTime
	a.ATime, a.MTime = atime, mtime
}

// GetPermissions returns the Permissions field as a FileMode, or the zero
// FileMode if AttrPermissions is not set.
func (a *Attributes) GetPermissions() FileMode {
	if a.Flags&AttrPermissions == 0 {
		return 0
	}
	return FileMode(a.Permissions)
}

// GetUserGroup returns the UID and GID fields, or (0, 0) if AttrUIDGID is not set.
func (a *Attributes) GetUserGroup() (uid, gid uint32) {
	if a.Flags&AttrUIDGID == 0 {
		return 0, 0
	}
	return a.UID, a.GID
}

// GetSize returns the Size field and whether AttrSize is set.
func (a *Attributes) GetSize() (size uint64, ok bool) {
	return a.Size, a.Flags&AttrSize != 0
}

// GetACModTime returns the ATime and MTime fields and whether AttrACModTime is set.
func (a *Attributes) GetACModTime() (atime, mtime uint32, ok bool) {
	return a.ATime, a.MTime, a.Flags&AttrACModTime != 0
}
