package domain

// Models 参与 AutoMigrate 的全部模型（顺序即建表顺序）
func Models() []any {
	return []any{
		&User{},
		&CustomerProfile{},
		&CreatorProfile{},
		&AdminProfile{},
		&Fabric{},
		&Post{},
		&Image{},
		&Cart{},
		&CartItem{},
		&Setting{},
		&ImageCleanupTask{},
	}
}
