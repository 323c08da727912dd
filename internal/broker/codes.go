package broker

// Brokers is the static reference list of IDX brokerage firms the crawler
// iterates. The list is immutable for the duration of a run.
var Brokers = []Broker{
	{Code: "AD", Name: "OSO Sekuritas Indonesia"},
	{Code: "AF", Name: "Harita Kencana Sekuritas"},
	{Code: "AG", Name: "Kiwoom Sekuritas Indonesia"},
	{Code: "AH", Name: "Shinhan Sekuritas Indonesia"},
	{Code: "AI", Name: "UOB Kay Hian Sekuritas"},
	{Code: "AK", Name: "UBS Sekuritas Indonesia"},
	{Code: "AN", Name: "Wanteg Sekuritas"},
	{Code: "AO", Name: "ERDIKHA ELIT SEKURITAS"},
	{Code: "AP", Name: "Pacific Sekuritas Indonesia"},
	{Code: "AR", Name: "Binaartha Sekuritas"},
	{Code: "AT", Name: "Phintraco Sekuritas"},
	{Code: "AZ", Name: "Sucor Sekuritas"},
	{Code: "BB", Name: "Verdhana Sekuritas Indonesia"},
	{Code: "BF", Name: "Inti Fikasa Sekuritas"},
	{Code: "BK", Name: "J.P. Morgan Sekuritas Indonesia"},
	{Code: "BQ", Name: "Korea Investment and Sekuritas Indonesia"},
	{Code: "BR", Name: "Trust Sekuritas"},
	{Code: "BS", Name: "Equity Sekuritas Indonesia"},
	{Code: "CC", Name: "MANDIRI SEKURITAS"},
	{Code: "CD", Name: "Mega Capital Sekuritas"},
	{Code: "CP", Name: "KB Valbury Sekuritas"},
	{Code: "DD", Name: "Makindo Sekuritas"},
	{Code: "DH", Name: "SINARMAS SEKURITAS"},
	{Code: "DP", Name: "DBS Vickers Sekuritas Indonesia"},
	{Code: "DR", Name: "RHB Sekuritas Indonesia"},
	{Code: "DU", Name: "KAF Sekuritas Indonesia"},
	{Code: "DX", Name: "Bahana Sekuritas"},
	{Code: "EL", Name: "Evergreen Sekuritas Indonesia"},
	{Code: "EP", Name: "MNC Sekuritas"},
	{Code: "ES", Name: "EKOKAPITAL SEKURITAS"},
	{Code: "FO", Name: "Forte Global Sekuritas"},
	{Code: "FS", Name: "Yuanta Sekuritas Indonesia"},
	{Code: "FZ", Name: "Waterfront Sekuritas Indonesia"},
	{Code: "GA", Name: "BNC Sekuritas Indonesia"},
	{Code: "GI", Name: "Webull Sekuritas Indonesia"},
	{Code: "GR", Name: "PANIN SEKURITAS Tbk."},
	{Code: "GW", Name: "HSBC Sekuritas Indonesia"},
	{Code: "HD", Name: "KGI Sekuritas Indonesia"},
	{Code: "HP", Name: "Henan Putihrai Sekuritas"},
	{Code: "IC", Name: "Integrity Capital Sekuritas"},
	{Code: "ID", Name: "Anugerah Sekuritas Indonesia"},
	{Code: "IF", Name: "SAMUEL SEKURITAS INDONESIA"},
	{Code: "IH", Name: "Indo Harvest Sekuritas"},
	{Code: "II", Name: "Danatama Makmur Sekuritas"},
	{Code: "IN", Name: "INVESTINDO NUSANTARA SEKURITA"},
	{Code: "IT", Name: "INTI TELADAN SEKURITAS"},
	{Code: "IU", Name: "Indo Capital Sekuritas"},
	{Code: "KI", Name: "Ciptadana Sekuritas Asia"},
	{Code: "KK", Name: "Phillip Sekuritas Indonesia"},
	{Code: "KZ", Name: "CLSA Sekuritas Indonesia"},
	{Code: "LG", Name: "Trimegah Sekuritas Indonesia Tbk."},
	{Code: "LS", Name: "Reliance Sekuritas Indonesia Tbk."},
	{Code: "MG", Name: "Semesta Indovest Sekuritas"},
	{Code: "MI", Name: "Victoria Sekuritas Indonesia"},
	{Code: "MU", Name: "Minna Padi Investama Sekuritas"},
	{Code: "NI", Name: "BNI Sekuritas"},
	{Code: "OD", Name: "BRI Danareksa Sekuritas"},
	{Code: "OK", Name: "NET SEKURITAS"},
	{Code: "PC", Name: "FAC Sekuritas Indonesia"},
	{Code: "PD", Name: "Indo Premier Sekuritas"},
	{Code: "PF", Name: "Danasakti Sekuritas Indonesia"},
	{Code: "PG", Name: "Panca Global Sekuritas"},
	{Code: "PI", Name: "Magenta Kapital Sekuritas Indonesia"},
	{Code: "PO", Name: "Pilarmas Investindo Sekuritas"},
	{Code: "PP", Name: "Aldiracita Sekuritas Indonesia"},
	{Code: "QA", Name: "Tuntun Sekuritas Indonesia"},
	{Code: "RB", Name: "Ina Sekuritas Indonesia"},
	{Code: "RF", Name: "Buana Capital Sekuritas"},
	{Code: "RG", Name: "Profindo Sekuritas Indonesia"},
	{Code: "RO", Name: "Pluang Maju Sekuritas"},
	{Code: "RS", Name: "Yulie Sekuritas Indonesia Tbk."},
	{Code: "RX", Name: "Macquarie Sekuritas Indonesia"},
	{Code: "SA", Name: "Elit Sukses Sekuritas"},
	{Code: "SF", Name: "Surya Fajar Sekuritas"},
	{Code: "SH", Name: "Artha Sekuritas Indonesia"},
	{Code: "SQ", Name: "BCA Sekuritas"},
	{Code: "SS", Name: "Supra Sekuritas Indonesia"},
	{Code: "TF", Name: "Laba Sekuritas Indonesia"},
	{Code: "TP", Name: "OCBC Sekuritas Indonesia"},
	{Code: "TS", Name: "Dwidana Sakti Sekuritas"},
	{Code: "XA", Name: "NH Korindo Sekuritas Indonesia"},
	{Code: "XC", Name: "Ajaib Sekuritas Asia"},
	{Code: "XL", Name: "Stockbit Sekuritas Digital"},
	{Code: "YB", Name: "Yakin Bertumbuh Sekuritas"},
	{Code: "YJ", Name: "Lotus Andalan Sekuritas"},
	{Code: "YO", Name: "Amantara Sekuritas Indonesia"},
	{Code: "YP", Name: "Mirae Asset Sekuritas Indonesia"},
	{Code: "YU", Name: "CGS International Sekuritas Indonesia"},
	{Code: "ZP", Name: "Maybank Sekuritas Indonesia"},
	{Code: "ZR", Name: "Bumiputera Sekuritas"},
}

// FindBroker looks up a broker by code. The second return value reports
// whether the code is known.
func FindBroker(code string) (Broker, bool) {
	for _, b := range Brokers {
		if b.Code == code {
			return b, true
		}
	}
	return Broker{}, false
}
