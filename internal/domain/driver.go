package domain

// Driver is the provider-side profile consulted during bid admission.
type Driver struct {
	ID            string
	Name          string
	Phone         string
	Photo         string
	Rating        float64
	WalletBalance float64
}

// DriverPresence is one entry in the driver presence geo set: a live
// session handle positioned at the driver's last reported location.
type DriverPresence struct {
	SessionID string
	Lat       float64
	Lng       float64
}
