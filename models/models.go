package models

// All returns every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Subcategory{},
		&Provider{},
		&MenuItem{},
		&PaymentMethod{},
		&Availability{},
		&ServiceRequest{},
		&Appointment{},
		&Message{},
		&Review{},
		&Notification{},
	}
}
