// Package extraction turns a fetched species detail page into normalized
// measurement records.  Candidate tables are ranked by SelectCandidates, a
// fixed Chain of strategies attempts to read a length/weight grid from them,
// and the first grid that resolves its columns and yields valid rows wins.
package extraction

//Personal.AI order the ending
