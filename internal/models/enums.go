package models

import "fmt"

type ReservationStatus string

// Reservation statuses
const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
)

// ActiveReservationStatuses count toward double-booking checks
var ActiveReservationStatuses = []ReservationStatus{ReservationStatusPending, ReservationStatusConfirmed}

func (s ReservationStatus) IsActive() bool {
	return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

type CarStatus string

// Car statuses
const (
	CarStatusAvailable    CarStatus = "AVAILABLE"
	CarStatusRented       CarStatus = "RENTED"
	CarStatusMaintenance  CarStatus = "MAINTENANCE"
	CarStatusOutOfService CarStatus = "OUT_OF_SERVICE"
)

type MaintenanceStatus string

// Maintenance statuses
const (
	MaintenanceStatusScheduled  MaintenanceStatus = "SCHEDULED"
	MaintenanceStatusInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceStatusCompleted  MaintenanceStatus = "COMPLETED"
	MaintenanceStatusCancelled  MaintenanceStatus = "CANCELLED"
)

type MaintenanceType string

const (
	MaintenanceTypeRoutine    MaintenanceType = "ROUTINE"
	MaintenanceTypeRepair     MaintenanceType = "REPAIR"
	MaintenanceTypeInspection MaintenanceType = "INSPECTION"
	MaintenanceTypeEmergency  MaintenanceType = "EMERGENCY"
	MaintenanceTypeRecall     MaintenanceType = "RECALL"
)

type CarCategory string

const (
	CarCategoryEconomy      CarCategory = "ECONOMY"
	CarCategoryCompact      CarCategory = "COMPACT"
	CarCategoryIntermediate CarCategory = "INTERMEDIATE"
	CarCategoryStandard     CarCategory = "STANDARD"
	CarCategoryFullSize     CarCategory = "FULL_SIZE"
	CarCategoryPremium      CarCategory = "PREMIUM"
	CarCategoryLuxury       CarCategory = "LUXURY"
	CarCategorySUV          CarCategory = "SUV"
	CarCategoryVan          CarCategory = "VAN"
)

type TransmissionType string

const (
	TransmissionManual    TransmissionType = "MANUAL"
	TransmissionAutomatic TransmissionType = "AUTOMATIC"
	TransmissionCVT       TransmissionType = "CVT"
)

type FuelType string

const (
	FuelGasoline FuelType = "GASOLINE"
	FuelDiesel   FuelType = "DIESEL"
	FuelHybrid   FuelType = "HYBRID"
	FuelElectric FuelType = "ELECTRIC"
)

func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch v := ReservationStatus(s); v {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled, ReservationStatusCompleted:
		return v, nil
	}
	return "", fmt.Errorf("unknown reservation status: %s", s)
}

func ParseMaintenanceStatus(s string) (MaintenanceStatus, error) {
	switch v := MaintenanceStatus(s); v {
	case MaintenanceStatusScheduled, MaintenanceStatusInProgress, MaintenanceStatusCompleted, MaintenanceStatusCancelled:
		return v, nil
	}
	return "", fmt.Errorf("unknown maintenance status: %s", s)
}

func ParseMaintenanceType(s string) (MaintenanceType, error) {
	switch v := MaintenanceType(s); v {
	case MaintenanceTypeRoutine, MaintenanceTypeRepair, MaintenanceTypeInspection, MaintenanceTypeEmergency, MaintenanceTypeRecall:
		return v, nil
	}
	return "", fmt.Errorf("unknown maintenance type: %s", s)
}

func ParseCarCategory(s string) (CarCategory, error) {
	switch v := CarCategory(s); v {
	case CarCategoryEconomy, CarCategoryCompact, CarCategoryIntermediate, CarCategoryStandard,
		CarCategoryFullSize, CarCategoryPremium, CarCategoryLuxury, CarCategorySUV, CarCategoryVan:
		return v, nil
	}
	return "", fmt.Errorf("unknown car category: %s", s)
}

func ParseTransmissionType(s string) (TransmissionType, error) {
	switch v := TransmissionType(s); v {
	case TransmissionManual, TransmissionAutomatic, TransmissionCVT:
		return v, nil
	}
	return "", fmt.Errorf("unknown transmission type: %s", s)
}

func ParseFuelType(s string) (FuelType, error) {
	switch v := FuelType(s); v {
	case FuelGasoline, FuelDiesel, FuelHybrid, FuelElectric:
		return v, nil
	}
	return "", fmt.Errorf("unknown fuel type: %s", s)
}
