package models

import (
	"errors"

	"github.com/postback-hub/internal/logger"

	"gorm.io/gorm"
)

// DefaultPartners 内置合作方配置（仅在库中不存在时写入）
func DefaultPartners() []Partner {
	return []Partner{
		{
			Code:         "digenesia",
			Name:         "Digenesia",
			EndpointPath: "digenesia",
			ParameterMapping: ParameterMapping{
				"conversion_id": {"conversion_id", "transaction_id"},
				"offer_id":      {"offer_id"},
				"offer_name":    {"offer_name"},
				"sale_amount":   {"usd_sale_amount", "sale_amount"},
				"payout":        {"usd_payout", "rewars"},
				"currency":      {"currency"},
				"click_id":      {"click_id", "clickid"},
				"media_id":      {"media_id"},
				"aff_sub1":      {"aff_sub", "aff_sub1"},
				"aff_sub2":      {"aff_sub2"},
				"aff_sub3":      {"aff_sub3"},
				"aff_sub4":      {"aff_sub4"},
				"aff_sub5":      {"aff_sub5"},
				"source":        {"source", "sub_source"},
				"platform":      {"platform"},
				"event_time":    {"datetime_conversion", "event_time"},
				"status":        {"conversion_status", "status"},
			},
			AckFormat: "json",
			IsActive:  true,
		},
		{
			Code:         "involveasia",
			Name:         "Involve Asia",
			EndpointPath: "involve/asia",
			ParameterMapping: ParameterMapping{
				"conversion_id": {"conversion_id"},
				"offer_id":      {"offer_id"},
				"offer_name":    {"offer_name"},
				"sale_amount":   {"sale_amount"},
				"payout":        {"payout"},
				"currency":      {"currency"},
				"aff_sub1":      {"aff_sub1"},
				"aff_sub2":      {"aff_sub2"},
				"aff_sub3":      {"aff_sub3"},
				"aff_sub4":      {"aff_sub4"},
				"aff_sub5":      {"aff_sub5"},
				"event_time":    {"datetime_conversion"},
				"status":        {"conversion_status"},
			},
			AckFormat: "text",
			IsActive:  true,
		},
	}
}

// InitDefaultPartners 写入缺失的内置合作方，已有记录不覆盖
func InitDefaultPartners(db *gorm.DB) error {
	for _, partner := range DefaultPartners() {
		var existing Partner
		err := db.Where("code = ?", partner.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		row := partner
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		logger.Infow("default_partner_created", "partner_code", row.Code, "endpoint_path", row.EndpointPath)
	}
	return nil
}
