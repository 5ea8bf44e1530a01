//-------------------------------------------------------------------------
//
// pgEdge Sales ETL
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package fact assembles the sales fact table.
package fact

import (
	"github.com/pgEdge/pgedge-salesetl/internal/dimension"
	"github.com/pgEdge/pgedge-salesetl/internal/logging"
	"github.com/pgEdge/pgedge-salesetl/internal/model"
	"github.com/pgEdge/pgedge-salesetl/internal/schema"
)

// Columns are the fact_sales columns in load order.
var Columns = []string{"date", "store_nbr", "family_id", "sales", "onpromotion"}

// Result is the assembled fact table and the number of rows whose family
// had no match in the product family dimension.
type Result struct {
	Table     dimension.Table[model.FactSale]
	Unmatched int
}

// Assemble resolves each sale's family name to its family_id. A sale whose
// family is unknown keeps a NULL family_id. Every input row yields exactly
// one fact row, in input order.
func Assemble(sales []model.SaleRecord, families dimension.Table[model.ProductFamily]) Result {
	ids := make(map[string]int, families.Len())
	for _, f := range families.Rows {
		ids[f.FamilyName] = f.FamilyID
	}

	res := Result{Table: dimension.Table[model.FactSale]{
		Name:    schema.FactSales,
		Columns: Columns,
		Rows:    make([]model.FactSale, len(sales)),
	}}
	for i, s := range sales {
		row := model.FactSale{
			Date:        s.Date,
			StoreNbr:    s.StoreNbr,
			Sales:       s.Sales,
			OnPromotion: s.OnPromotion,
		}
		if id, ok := ids[s.Family]; ok {
			row.FamilyID = model.Ptr(id)
		} else {
			res.Unmatched++
		}
		res.Table.Rows[i] = row
	}

	if res.Unmatched > 0 {
		logging.Warn().
			Int("rows", res.Unmatched).
			Msg("Sales rows with unknown product family loaded with NULL family_id")
	}
	return res
}
