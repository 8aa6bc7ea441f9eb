package model

type Medicine struct {
	ID     MedicineID
	Name   string
	Active bool
}
