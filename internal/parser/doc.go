// Package parser turns the flat transaction dataset into TransactionRecords.
//
// The record file has one record per line with whitespace-separated fields:
//
//	<transactionId> <txHash> <address> <amount> <direction>
//
// where direction is "in" or "out" (case-sensitive) and amount is a
// non-negative base-10 integer. Fields after the fifth are ignored and blank
// lines are skipped. Address format and cross-record consistency are not
// validated here.
package parser
